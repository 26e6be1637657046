package application

import (
	"context"
	"strings"

	"github.com/mikidaniel85/warehouse-pbb/internal/domain"
	"github.com/mikidaniel85/warehouse-pbb/internal/search"
	"github.com/mikidaniel85/warehouse-pbb/pkg/errors"
	"github.com/mikidaniel85/warehouse-pbb/pkg/logging"
)

// TextRecognizer extracts text from an image. An empty string means nothing was recognized.
type TextRecognizer interface {
	Recognize(ctx context.Context, image []byte, contentType string) (string, error)
}

// SearchService finds slots and catalog entries from free text or a captured image.
type SearchService struct {
	deps       *Dependencies
	recognizer TextRecognizer
	logger     *logging.Logger
}

// NewSearchService creates a SearchService. recognizer may be nil, which
// disables image search.
func NewSearchService(deps *Dependencies, recognizer TextRecognizer) *SearchService {
	return &SearchService{deps: deps, recognizer: recognizer, logger: deps.Logger.WithComponent("search")}
}

// Search matches text against every slot and catalog entry. Empty text matches everything.
func (s *SearchService) Search(ctx context.Context, actor domain.Actor, q SearchQuery) (*SearchResultDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.search(ctx, search.ParseQuery(q.Text))
}

// SearchImage recognizes text in the image and searches with it. An image in
// which nothing is recognized yields no results.
func (s *SearchService) SearchImage(ctx context.Context, actor domain.Actor, q ImageSearchQuery) (*SearchResultDTO, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if s.recognizer == nil {
		return nil, errors.ErrServiceUnavailable("text recognition")
	}
	if len(q.Image) == 0 {
		return nil, toAppError(domain.NewValidationError("image", "is required"))
	}

	text, err := s.recognizer.Recognize(ctx, q.Image, q.ContentType)
	if err != nil {
		s.logger.Error("Text recognition failed", "bytes", len(q.Image), "error", err)
		return nil, errors.ErrServiceUnavailable("text recognition").Wrap(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &SearchResultDTO{Tokens: []string{}, Locations: []*LocationDTO{}, Items: []*ItemDTO{}}, nil
	}

	s.logger.Debug("Recognized text", "text", text)
	return s.search(ctx, search.ParseQuery(text))
}

func (s *SearchService) search(ctx context.Context, query search.Query) (*SearchResultDTO, error) {
	items, err := read(ctx, s.deps.Policy, "listItems", func(ctx context.Context) ([]*domain.Item, error) {
		return s.deps.Repos.Items.List(ctx)
	})
	if err != nil {
		return nil, toAppError(err)
	}
	locs, err := read(ctx, s.deps.Policy, "listLocations", func(ctx context.Context) ([]*domain.Location, error) {
		return s.deps.Repos.Locations.List(ctx, domain.LocationFilter{})
	})
	if err != nil {
		return nil, toAppError(err)
	}

	byID := make(map[string]*domain.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	matchedLocs := search.Filter(query, locs, func(l *domain.Location) search.Candidate {
		c := search.Candidate{Key: l.ID, Name: l.ItemName, Identifiers: []string{l.ItemID}}
		if item, ok := byID[l.ItemID]; ok {
			c.Identifiers = append(c.Identifiers, item.InternalSKU)
		}
		return c
	})
	matchedItems := search.Filter(query, items, func(i *domain.Item) search.Candidate {
		return search.Candidate{Key: i.ID, Name: i.Description, Identifiers: []string{i.InternalSKU, i.ID}}
	})

	tokens := query.Tokens()
	if tokens == nil {
		tokens = []string{}
	}
	return &SearchResultDTO{
		Query:     query.String(),
		Tokens:    tokens,
		Locations: ToLocationDTOs(matchedLocs),
		Items:     ToItemDTOs(matchedItems),
	}, nil
}
