package daemon

import (
	"errors"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/layout"
	"github.com/janekbaraniewski/calgrid/internal/viewstate"
)

// APIVersion is compared by major version between client and daemon.
const APIVersion = "v1.1.0"

var (
	errDaemonUnavailable  = errors.New("calgrid daemon unavailable")
	ErrIncompatibleDaemon = errors.New("incompatible daemon api version")
)

type Config struct {
	SocketPath          string
	Addr                string
	WriteLimitPerMinute int
	Grid                config.Grid
	Verbose             bool
}

type HealthResponse struct {
	Status        string `json:"status"`
	DaemonVersion string `json:"daemon_version,omitempty"`
	APIVersion    string `json:"api_version,omitempty"`
}

type UpsertRequest struct {
	Value *float64 `json:"value"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// LayoutQuery is the validated query of GET /v1/layout. Zero fields take
// the daemon's defaults.
type LayoutQuery struct {
	Rows   int     `validate:"omitempty,min=1,max=64"`
	Width  float64 `validate:"omitempty,gt=0"`
	Height float64 `validate:"omitempty,gt=0"`
	Mode   string  `validate:"omitempty,oneof=avg median max min"`
}

// LayoutResponse is engine output for external renderers.
type LayoutResponse struct {
	Rows       int                 `json:"rows"`
	Mode       core.AggregateMode  `json:"mode"`
	Metrics    layout.Metrics      `json:"metrics"`
	Padding    viewstate.Padding   `json:"padding"`
	Layout     core.LayoutResult   `json:"layout"`
	Cells      []core.CalendarCell `json:"cells"`
	TodayIndex int                 `json:"todayIndex"`
	Series     []viewstate.Series  `json:"series"`
	Data       viewstate.Range     `json:"data"`
	Axis       viewstate.Range     `json:"axis"`
	Heat       *viewstate.Range    `json:"heat,omitempty"`
}

type dateParam struct {
	Date string `validate:"required,datetime=2006-01-02"`
}
