package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/door-client/gateway"
)

type AccessLogService struct {
	gw *gateway.Gateway
}

func NewAccessLogService(gw *gateway.Gateway) *AccessLogService {
	return &AccessLogService{gw: gw}
}

func (a *AccessLogService) List(ctx context.Context) (*AccessLogPage, error) {
	var page AccessLogPage
	if err := sendJSON(ctx, a.gw, http.MethodGet, "/access-logs", nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (a *AccessLogService) Delete(ctx context.Context, id string) error {
	return sendJSON(ctx, a.gw, http.MethodDelete, "/access-logs/"+url.PathEscape(id), nil, nil)
}

// Clear removes the whole access history.
func (a *AccessLogService) Clear(ctx context.Context) error {
	return sendJSON(ctx, a.gw, http.MethodDelete, "/access-logs", nil, nil)
}
