package estimator

import (
	"math"

	"github.com/mmeshcher/ecobazaar-estimator/internal/model"
)

// Levels содержит уровни программы лояльности в порядке строгого возрастания порога.
// Первый порог равен нулю, поэтому любое число баллов соответствует какому-то уровню.
var Levels = []model.LoyaltyLevel{
	{Name: "Eco Starter", MinPoints: 0},
	{Name: "Green Explorer", MinPoints: 200},
	{Name: "Carbon Hero", MinPoints: 500},
	{Name: "Planet Guardian", MinPoints: 1000},
	{Name: "Earth Legend", MinPoints: 2000},
}

// LevelFor возвращает название уровня для накопленных баллов.
func LevelFor(points float64) string {
	return Levels[currentLevelIndex(points)].Name
}

// NextLevelInfo возвращает следующий уровень. Второе значение false, если достигнут максимальный.
func NextLevelInfo(points float64) (model.LoyaltyLevel, bool) {
	for _, l := range Levels {
		if points < float64(l.MinPoints) {
			return l, true
		}
	}
	return model.LoyaltyLevel{}, false
}

// ProgressFraction возвращает долю пройденного пути до следующего уровня в диапазоне [0, 1].
func ProgressFraction(points float64) float64 {
	i := currentLevelIndex(points)
	if i == len(Levels)-1 {
		return 1
	}

	lo := float64(Levels[i].MinPoints)
	hi := float64(Levels[i+1].MinPoints)

	return math.Min(1, math.Max(0, (points-lo)/(hi-lo)))
}

// Standing собирает сведения об уровне пользователя для профиля.
func Standing(points float64) model.LoyaltyStanding {
	s := model.LoyaltyStanding{
		Points:   points,
		Level:    LevelFor(points),
		Progress: ProgressFraction(points),
	}

	if next, ok := NextLevelInfo(points); ok {
		name, threshold := next.Name, next.MinPoints
		s.NextLevelName = &name
		s.NextLevelPoints = &threshold
		s.PointsToNext = float64(threshold) - points
	}

	return s
}

func currentLevelIndex(points float64) int {
	for i := len(Levels) - 1; i >= 0; i-- {
		if points >= float64(Levels[i].MinPoints) {
			return i
		}
	}
	return 0
}
