package services

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/stampcard-app/stampcard/stampcard/database/models"
	"github.com/stampcard-app/stampcard/stampcard/database/repositories/mock"
)

func searchFixtures() []*models.Program {
	return []*models.Program{
		{ID: "p1", Title: "Noodle House"},
		{ID: "p2", Title: "Burger Barn"},
		{ID: "p3", Title: "Noodle Express"},
	}
}

func TestSearchService_SearchPrograms(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{
			name:    "empty query returns everything",
			query:   "",
			wantIDs: []string{"p1", "p2", "p3"},
		},
		{
			name:    "whitespace query returns everything",
			query:   "   ",
			wantIDs: []string{"p1", "p2", "p3"},
		},
		{
			name:    "fuzzy match is case-insensitive",
			query:   "NOODLE",
			wantIDs: []string{"p1", "p3"},
		},
		{
			name:    "no match",
			query:   "pizza",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			programs := mock.NewMockProgramRepository(ctrl)
			programs.EXPECT().
				GetAll(gomock.Any()).
				Return(searchFixtures(), nil)

			s := NewSearchService(programs)
			got, err := s.SearchPrograms(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("SearchPrograms() unexpected error = %v", err)
			}

			gotIDs := make(map[string]bool, len(got))
			for _, p := range got {
				gotIDs[p.ID] = true
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("SearchPrograms() returned %d programs, want %d", len(got), len(tt.wantIDs))
			}
			for _, id := range tt.wantIDs {
				if !gotIDs[id] {
					t.Errorf("SearchPrograms() missing program %s", id)
				}
			}
		})
	}
}
