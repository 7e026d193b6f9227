package devserver

import (
	"strings"

	"github.com/kasuwa/searchstream/internal/domain/entities"
)

// Directory is the fixture dataset the devserver searches: a small
// business directory partitioned by entity category.
type Directory struct {
	byCategory map[string][]entities.SearchResultItem
}

// NewDirectory returns the built-in fixture directory.
func NewDirectory() *Directory {
	return &Directory{byCategory: map[string][]entities.SearchResultItem{
		entities.CategoryServices: {
			{ID: "svc-1", Name: "Ikeja Express Laundry", Specialty: "laundry", Location: "Ikeja", Rating: 4.3, Recommended: true},
			{ID: "svc-2", Name: "Lekki Phone Repair", Specialty: "electronics repair", Location: "Lekki", Rating: 4.0},
		},
		entities.CategoryPeople: {
			{ID: "per-1", Name: "Amina Bello", Specialty: "tailor", Location: "Yaba", Rating: 4.8, Recommended: true},
			{ID: "per-2", Name: "Chuka Obi", Specialty: "electrician", Location: "Surulere", Rating: 4.1},
		},
		entities.CategoryShops: {
			{ID: "shp-1", Name: "Balogun Fabric House", Specialty: "fabrics", Location: "Lagos Island", Rating: 4.5},
			{ID: "shp-2", Name: "Computer Village Hub", Specialty: "electronics", Location: "Ikeja", Rating: 3.9},
		},
		entities.CategoryProducts: {
			{ID: "prd-1", Name: "Ankara Print Bundle", Specialty: "fabrics", Rating: 4.6, Recommended: true},
			{ID: "prd-2", Name: "Solar Power Bank", Specialty: "electronics", Rating: 4.2},
		},
	}}
}

// Search returns the per-category matches for query. Matching is a simple
// case-insensitive substring scan over name, specialty and location; the
// devserver fakes ranking, it does not implement it.
func (d *Directory) Search(query string) map[string][]entities.SearchResultItem {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := make(map[string][]entities.SearchResultItem)

	for _, category := range entities.CategoryOrder {
		for _, item := range d.byCategory[category] {
			if q == "" || matchesQuery(item, q) {
				matches[category] = append(matches[category], item)
			}
		}
	}
	return matches
}

func matchesQuery(item entities.SearchResultItem, q string) bool {
	for _, field := range []string{item.Name, item.Specialty, item.Location} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
