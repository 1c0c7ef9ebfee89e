package client

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/repolist-client/pkg/model"
)

// Wire types mirror the snake_case GitHub payloads. Pointers mark the fields
// a payload must carry; unknown fields are ignored.
type wireOwner struct {
	ID        *int64  `json:"id"`
	Login     *string `json:"login"`
	AvatarURL string  `json:"avatar_url"`
}

type wireRepository struct {
	ID    *int64     `json:"id"`
	Name  *string    `json:"name"`
	Owner *wireOwner `json:"owner"`
}

type wireDetail struct {
	StargazersCount *int `json:"stargazers_count"`
}

func decodeRepositories(data []byte) ([]model.Repository, error) {
	var wire []wireRepository
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, err
	}

	repos := make([]model.Repository, 0, len(wire))
	for i, w := range wire {
		switch {
		case w.ID == nil:
			return nil, fmt.Errorf("repository at index %d: missing field \"id\"", i)
		case w.Name == nil:
			return nil, fmt.Errorf("repository %d: missing field \"name\"", *w.ID)
		case w.Owner == nil:
			return nil, fmt.Errorf("repository %d: missing field \"owner\"", *w.ID)
		case w.Owner.ID == nil:
			return nil, fmt.Errorf("repository %d: missing field \"owner.id\"", *w.ID)
		case w.Owner.Login == nil:
			return nil, fmt.Errorf("repository %d: missing field \"owner.login\"", *w.ID)
		}

		repos = append(repos, model.Repository{
			ID:   *w.ID,
			Name: *w.Name,
			Owner: model.Owner{
				ID:        *w.Owner.ID,
				Login:     *w.Owner.Login,
				AvatarURL: w.Owner.AvatarURL,
			},
		})
	}

	return repos, nil
}

func decodeStarCount(data []byte) (int, error) {
	var wire wireDetail
	if err := json.Unmarshal(data, &wire); err != nil {
		return 0, err
	}
	if wire.StargazersCount == nil {
		return 0, fmt.Errorf("missing field \"stargazers_count\"")
	}
	return *wire.StargazersCount, nil
}
