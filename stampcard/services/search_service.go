package services

import (
	"context"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories"
)

// ProgramSearchItems implements fuzzy.Source for program searching
type ProgramSearchItems []ProgramSearchItem

type ProgramSearchItem struct {
	Program *models.Program
	Title   string
}

func (items ProgramSearchItems) Len() int {
	return len(items)
}

func (items ProgramSearchItems) String(i int) string {
	return items[i].Title
}

// SearchService ranks programs against a free-text query so users can
// find a restaurant without knowing its join code.
type SearchService struct {
	programRepo repositories.ProgramRepository
}

func NewSearchService(programRepo repositories.ProgramRepository) *SearchService {
	return &SearchService{programRepo: programRepo}
}

// SearchPrograms fuzzy-matches program titles. An empty query returns
// everything in creation order.
func (s *SearchService) SearchPrograms(ctx context.Context, query string) ([]*models.Program, error) {
	programs, err := s.programRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return programs, nil
	}

	items := make(ProgramSearchItems, 0, len(programs))
	for _, p := range programs {
		items = append(items, ProgramSearchItem{
			Program: p,
			Title:   strings.ToLower(p.Title),
		})
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), items)

	results := make([]*models.Program, 0, len(matches))
	for _, m := range matches {
		results = append(results, items[m.Index].Program)
	}
	return results, nil
}
