package utils

import (
	"math"

	"diabcare/internal/models"
)

// DashboardStats summarizes a filtered set of patients.
type DashboardStats struct {
	Total              int     `json:"total"`
	Diabetic           int     `json:"diabetic"`
	NonDiabetic        int     `json:"non_diabetic"`
	DiabeticPercentage float64 `json:"diabetic_percentage"`
}

// roundFloat rounds a float64 to a specified number of decimal places. Ties
// go to the even digit, so 6.25 becomes 6.2.
func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.RoundToEven(val*ratio) / ratio
}

// ComputeDashboardStats counts the patients and their diabetic share over the
// whole slice. NonDiabetic is everything not marked diabetic, including
// patients whose prediction failed. The percentage is rounded to one decimal
// and is 0 for an empty slice.
func ComputeDashboardStats(patients []models.Patient) DashboardStats {
	stats := DashboardStats{Total: len(patients)}
	for _, p := range patients {
		if p.IsDiabetic() {
			stats.Diabetic++
		}
	}
	stats.NonDiabetic = stats.Total - stats.Diabetic

	if stats.Total == 0 {
		return stats
	}
	stats.DiabeticPercentage = roundFloat(float64(stats.Diabetic)/float64(stats.Total)*100, 1)
	return stats
}
