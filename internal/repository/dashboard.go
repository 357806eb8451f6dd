package repository

import (
	"context"

	"diabcare/internal/database"
	"diabcare/internal/models"
	"diabcare/internal/utils"
)

// Filter selects patients by outcome class.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterDiabetic    Filter = "diabetic"
	FilterNonDiabetic Filter = "non_diabetic"
)

// ParseFilter maps a query value to a Filter. Unknown values mean all.
func ParseFilter(s string) Filter {
	switch Filter(s) {
	case FilterDiabetic, FilterNonDiabetic:
		return Filter(s)
	default:
		return FilterAll
	}
}

// Sort orders the dashboard.
type Sort string

const (
	SortCreatedAt Sort = "created_at"
	SortName      Sort = "name"
	SortAge       Sort = "age"
	SortResult    Sort = "result"
)

// ParseSort maps a query value to a Sort. Unknown values mean newest first.
func ParseSort(s string) Sort {
	switch Sort(s) {
	case SortName, SortAge, SortResult:
		return Sort(s)
	default:
		return SortCreatedAt
	}
}

// orderClauses are fixed strings; user input never reaches ORDER BY.
var orderClauses = map[Sort]string{
	SortName:      "name ASC, id ASC",
	SortAge:       "age DESC, id ASC",
	SortResult:    "result ASC, id ASC",
	SortCreatedAt: "created_at DESC, id DESC",
}

// DashboardQuery selects and orders a doctor's patients.
type DashboardQuery struct {
	Filter Filter
	Sort   Sort
}

// Dashboard is a filtered, sorted patient list with statistics computed
// over the whole filtered list.
type Dashboard struct {
	Patients []models.Patient     `json:"patients"`
	Stats    utils.DashboardStats `json:"stats"`
	Filter   Filter               `json:"current_filter"`
	Sort     Sort                 `json:"current_sort"`
}

// Dashboard lists the doctor's patients for q.
func (r *PatientRepository) Dashboard(ctx context.Context, doctorID uint, q DashboardQuery) (*Dashboard, error) {
	q.Filter = ParseFilter(string(q.Filter))
	q.Sort = ParseSort(string(q.Sort))

	query := r.db.WithContext(ctx).Where("doctor_id = ?", doctorID)
	switch q.Filter {
	case FilterDiabetic:
		query = query.Where("result = ?", models.ResultDiabetic)
	case FilterNonDiabetic:
		query = query.Where("result = ?", models.ResultNonDiabetic)
	}

	patients := []models.Patient{}
	if err := query.Order(orderClauses[q.Sort]).Find(&patients).Error; err != nil {
		return nil, database.ClassifyError("list patients", err)
	}

	return &Dashboard{
		Patients: patients,
		Stats:    utils.ComputeDashboardStats(patients),
		Filter:   q.Filter,
		Sort:     q.Sort,
	}, nil
}
