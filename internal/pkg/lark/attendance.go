package lark

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/stats"
)

type User struct {
	UserID string `json:"user_id"`
	OpenID string `json:"open_id"`
	Name   string `json:"name"`
}

// StatsQuery selects the daily statistics of one user over a date range.
type StatsQuery struct {
	UserIDs   []string `json:"user_ids"`
	UserID    string   `json:"user_id"`
	StartDate int      `json:"start_date"`
	EndDate   int      `json:"end_date"`
	StatsType string   `json:"stats_type"`
	Locale    string   `json:"locale"`
}

func NewDailyStatsQuery(userID string, from, to time.Time) StatsQuery {
	return StatsQuery{
		UserIDs:   []string{userID},
		UserID:    userID,
		StartDate: compactDate(from),
		EndDate:   compactDate(to),
		StatsType: "daily",
		Locale:    "en",
	}
}

func compactDate(t time.Time) int {
	n, _ := strconv.Atoi(t.Format("20060102"))
	return n
}

// View is a user's statistics column configuration. It is kept as loose JSON
// so an update sends back every field the platform returned.
type View map[string]any

func (c *Client) GetUser(ctx context.Context, tenantKey, openID string) (User, error) {
	data, err := call[struct {
		User User `json:"user"`
	}](ctx, c.httpClient(tenantKey), http.MethodGet, c.url("/contact/v3/users/"+url.PathEscape(openID)), nil)
	if err != nil {
		return User{}, err
	}
	if data.User.UserID == "" {
		return User{}, fmt.Errorf("%w: %s", ErrNoUser, openID)
	}
	return data.User, nil
}

func (c *Client) QueryStatsView(ctx context.Context, tenantKey string, q StatsQuery) (View, error) {
	data, err := call[struct {
		View View `json:"view"`
	}](ctx, c.httpClient(tenantKey), http.MethodPost, c.url("/attendance/v1/user_stats_views/query?employee_type=employee_id"), q)
	if err != nil {
		return nil, err
	}
	return data.View, nil
}

func (c *Client) UpdateStatsView(ctx context.Context, tenantKey string, view View) error {
	viewID, _ := view["view_id"].(string)
	if viewID == "" {
		return fmt.Errorf("lark stats view has no view_id")
	}

	_, err := call[struct{}](ctx, c.httpClient(tenantKey), http.MethodPut,
		c.url("/attendance/v1/user_stats_views/"+url.PathEscape(viewID)+"?employee_type=employee_id"),
		map[string]any{"view": view})
	return err
}

func (c *Client) QueryDailyStats(ctx context.Context, tenantKey string, q StatsQuery) ([]Day, error) {
	data, err := call[struct {
		UserDatas []Day `json:"user_datas"`
	}](ctx, c.httpClient(tenantKey), http.MethodPost, c.url("/attendance/v1/user_stats_datas/query?employee_type=employee_id"), q)
	if err != nil {
		return nil, err
	}
	return data.UserDatas, nil
}

// EnableAllColumns switches on every child column of the view so the daily
// query returns all the codes Day.Record reads.
func EnableAllColumns(view View) {
	items, _ := view["items"].([]any)
	for _, item := range items {
		field, ok := item.(map[string]any)
		if !ok {
			continue
		}
		children, _ := field["child_items"].([]any)
		for _, child := range children {
			if c, ok := child.(map[string]any); ok {
				c["value"] = "1"
			}
		}
	}
}

// FetchDaily implements stats.Source.
func (c *Client) FetchDaily(ctx context.Context, identity employee.ExternalIdentity, from, to time.Time) ([]stats.RawDay, error) {
	var tenantKey string
	if identity.TenantID != nil {
		tenantKey = *identity.TenantID
	}

	user, err := c.GetUser(ctx, tenantKey, identity.UserID)
	if err != nil {
		return nil, err
	}

	q := NewDailyStatsQuery(user.UserID, from, to)

	view, err := c.QueryStatsView(ctx, tenantKey, q)
	if err != nil {
		return nil, err
	}
	EnableAllColumns(view)
	if err := c.UpdateStatsView(ctx, tenantKey, view); err != nil {
		return nil, err
	}

	days, err := c.QueryDailyStats(ctx, tenantKey, q)
	if err != nil {
		return nil, err
	}

	raw := make([]stats.RawDay, len(days))
	for i, d := range days {
		raw[i] = d
	}
	return raw, nil
}
