package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pc28/domain/entities"
	"pc28/domain/rules"

	log "github.com/sirupsen/logrus"
)

// USA28Endpoint is the default history endpoint of the primary provider
const USA28Endpoint = "https://api.365kaik.com/api/v1/trend/getHistoryList?lotCode=10029&pageSize=2&pageNo=1"

type usa28Response struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    *struct {
		List []usa28Item `json:"list"`
	} `json:"data"`
}

type usa28Item struct {
	DrawIssue flexString `json:"drawIssue"`
	DrawTime  string     `json:"drawTime"`
	DrawCode  string     `json:"drawCode"`
}

// USA28Source reads the primary provider's history list
type USA28Source struct {
	httpSource
}

// NewUSA28Source creates the adapter. A zero timeout uses 10 seconds.
func NewUSA28Source(name string, priority int, enabled bool, endpoint string, timeout time.Duration) *USA28Source {
	if endpoint == "" {
		endpoint = USA28Endpoint
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &USA28Source{httpSource: newHTTPSource(name, priority, enabled, endpoint, timeout)}
}

// FetchLatest returns the newest draws, newest first. Malformed items are
// skipped; an envelope with code != 0 is an error.
func (s *USA28Source) FetchLatest(ctx context.Context) ([]entities.DrawItem, error) {
	var resp usa28Response
	if err := s.getJSON(ctx, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", s.desc.Name, err)
	}
	if resp.Code != 0 || resp.Data == nil {
		return nil, fmt.Errorf("%s: unexpected envelope code=%d msg=%q", s.desc.Name, resp.Code, resp.Message)
	}

	items := make([]entities.DrawItem, 0, len(resp.Data.List))
	for _, raw := range resp.Data.List {
		item, err := raw.toDrawItem()
		if err != nil {
			log.WithFields(log.Fields{
				"source": s.desc.Name,
				"issue":  raw.DrawIssue.String(),
				"error":  err,
			}).Warn("Skipping malformed draw item")
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (i usa28Item) toDrawItem() (entities.DrawItem, error) {
	issue := strings.TrimSpace(i.DrawIssue.String())
	if issue == "" {
		return entities.DrawItem{}, fmt.Errorf("missing drawIssue")
	}

	digits, err := rules.ParseDrawNumbers(i.DrawCode)
	if err != nil {
		return entities.DrawItem{}, err
	}

	drawTime, err := parseProviderTime(i.DrawTime)
	if err != nil {
		return entities.DrawItem{}, err
	}

	return entities.DrawItem{
		Issue:    issue,
		Digits:   digits,
		Sum:      digits[0] + digits[1] + digits[2],
		DrawTime: drawTime,
	}, nil
}
