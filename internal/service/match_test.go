package service

import (
	"reflect"
	"testing"

	"github.com/aura-chat/chat-service/internal/domain"
)

func TestCommonInterests(t *testing.T) {
	cases := []struct {
		name string
		a, b []string
		want []string
	}{
		{"пересечение", []string{"music", "anime", "cats"}, []string{"cats", "music", "travel"}, []string{"music", "cats"}},
		{"без общих", []string{"music"}, []string{"travel"}, nil},
		{"пустые", nil, nil, nil},
		{"порядок как у первого", []string{"a", "b", "c"}, []string{"c", "a"}, []string{"a", "c"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := commonInterests(tc.a, tc.b)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("commonInterests(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestBestMatch(t *testing.T) {
	interests := []string{"music", "anime", "cats"}

	candidates := []domain.Profile{
		{ID: "u1", Interests: []string{"travel"}},
		{ID: "u2", Interests: []string{"music", "cats"}},
		{ID: "u3", Interests: []string{"anime"}},
	}

	if got := bestMatch(interests, candidates); got.ID != "u2" {
		t.Errorf("bestMatch picked %s, want u2", got.ID)
	}
}

func TestBestMatchTieKeepsFirst(t *testing.T) {
	interests := []string{"music", "cats"}

	candidates := []domain.Profile{
		{ID: "u1", Interests: []string{"music"}},
		{ID: "u2", Interests: []string{"cats"}},
	}

	if got := bestMatch(interests, candidates); got.ID != "u1" {
		t.Errorf("bestMatch picked %s, want u1 (первый при равенстве)", got.ID)
	}
}

func TestBestMatchNoOverlap(t *testing.T) {
	candidates := []domain.Profile{
		{ID: "u1", Interests: []string{"travel"}},
	}

	// даже без общих интересов кто-то выбирается
	if got := bestMatch([]string{"music"}, candidates); got.ID != "u1" {
		t.Errorf("bestMatch picked %s, want u1", got.ID)
	}
}
