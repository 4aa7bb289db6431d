package backend

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/door-client/gateway"
	autherrors "github.com/jrsteele09/door-client/internal/errors"
)

type Action string

const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionOpen, ActionClose:
		return a, nil
	}
	return "", autherrors.Wrapf(autherrors.ErrInvalidAction, "%q", s)
}

// DeviceService drives the door through the Device Control Service.
type DeviceService struct {
	gw *gateway.Gateway
}

func NewDeviceService(gw *gateway.Gateway) *DeviceService {
	return &DeviceService{gw: gw}
}

func (d *DeviceService) Control(ctx context.Context, action Action) (*ControlResult, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return nil, err
	}
	var res ControlResult
	if err := sendJSON(ctx, d.gw, http.MethodPost, "/control", map[string]Action{"action": action}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (d *DeviceService) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := sendJSON(ctx, d.gw, http.MethodGet, "/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}
