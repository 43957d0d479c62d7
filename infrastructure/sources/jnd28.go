package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pc28/domain/entities"

	log "github.com/sirupsen/logrus"
)

// JND28Endpoint is the default result endpoint of the backup provider
const JND28Endpoint = "https://c2api.canada28.vip/api/lotteryresult/result_jnd28?game_id=7&page=1&page_size=2"

type jnd28Response struct {
	Error      int         `json:"error"`
	Message    string      `json:"msg"`
	ResultList []jnd28Item `json:"result_list"`
}

type jnd28Item struct {
	Expect   flexString `json:"expect"`
	Code1    flexString `json:"code1"`
	Code2    flexString `json:"code2"`
	Code3    flexString `json:"code3"`
	Date     string     `json:"date"`
	DateTime string     `json:"datetime"`
	OpenTime string     `json:"opentime"`
}

// JND28Source reads the backup provider's result list
type JND28Source struct {
	httpSource
}

// NewJND28Source creates the adapter. A zero timeout uses 15 seconds.
func NewJND28Source(name string, priority int, enabled bool, endpoint string, timeout time.Duration) *JND28Source {
	if endpoint == "" {
		endpoint = JND28Endpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &JND28Source{httpSource: newHTTPSource(name, priority, enabled, endpoint, timeout)}
}

// FetchLatest returns the newest draws, newest first. An envelope with
// error != 0 is an error.
func (s *JND28Source) FetchLatest(ctx context.Context) ([]entities.DrawItem, error) {
	var resp jnd28Response
	if err := s.getJSON(ctx, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", s.desc.Name, err)
	}
	if resp.Error != 0 {
		return nil, fmt.Errorf("%s: unexpected envelope error=%d msg=%q", s.desc.Name, resp.Error, resp.Message)
	}

	items := make([]entities.DrawItem, 0, len(resp.ResultList))
	for _, raw := range resp.ResultList {
		item, err := raw.toDrawItem()
		if err != nil {
			log.WithFields(log.Fields{
				"source": s.desc.Name,
				"issue":  raw.Expect.String(),
				"error":  err,
			}).Warn("Skipping malformed draw item")
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (i jnd28Item) toDrawItem() (entities.DrawItem, error) {
	issue := strings.TrimSpace(i.Expect.String())
	if issue == "" {
		return entities.DrawItem{}, fmt.Errorf("missing expect")
	}

	var digits [3]int
	for idx, code := range []flexString{i.Code1, i.Code2, i.Code3} {
		n, err := strconv.Atoi(code.String())
		if err != nil || n < 0 || n > 9 {
			return entities.DrawItem{}, fmt.Errorf("invalid code%d %q", idx+1, code)
		}
		digits[idx] = n
	}

	drawTime, err := parseProviderTime(i.drawTimeText())
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

// drawTimeText combines the calendar date with opentime. The provider's
// datetime field is its ingestion time, so only its date part is used.
func (i jnd28Item) drawTimeText() string {
	date := strings.TrimSpace(i.Date)
	if date == "" {
		date, _, _ = strings.Cut(strings.TrimSpace(i.DateTime), " ")
	}
	openTime := strings.TrimSpace(i.OpenTime)

	switch {
	case openTime == "":
		return strings.TrimSpace(i.DateTime)
	case strings.Contains(openTime, "-"):
		return openTime
	default:
		return date + " " + openTime
	}
}
