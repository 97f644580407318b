package rpc

// Primitive is one positional value at the call boundary: bool, string or float64.
type Primitive = any

const (
	MethodQueryEnabled   = "query-enabled"
	MethodSetEnabled     = "set-enabled"
	MethodResetNetwork   = "reset-network"
	MethodDownloadSub    = "download-subscription"
	MethodDownloadStatus = "get-download-status"
	MethodListSubs       = "list-subscriptions"
	MethodDeleteSub      = "delete-subscription"
	MethodSelectSub      = "select-subscription"
	MethodUpdateSubs     = "update-all-subscriptions"
	MethodUpdateStatus   = "get-update-status"
)

// Aliases maps the names used by the Decky front end onto methods.
var Aliases = map[string]string{
	"get_clash_status":    MethodQueryEnabled,
	"set_clash_status":    MethodSetEnabled,
	"reset_network":       MethodResetNetwork,
	"download_sub":        MethodDownloadSub,
	"get_download_status": MethodDownloadStatus,
	"get_sub_list":        MethodListSubs,
	"delete_sub":          MethodDeleteSub,
	"set_sub":             MethodSelectSub,
	"update_subs":         MethodUpdateSubs,
	"get_update_status":   MethodUpdateStatus,
}

// Request is one decoded call. Each method has its own variant.
type Request interface {
	Method() string
}

type (
	QueryEnabledRequest   struct{}
	SetEnabledRequest     struct{ Enabled bool }
	ResetNetworkRequest   struct{}
	DownloadSubRequest    struct{ URL string }
	DownloadStatusRequest struct{}
	ListSubsRequest       struct{}
	DeleteSubRequest      struct{ Index float64 }
	SelectSubRequest      struct{ Path string }
	UpdateSubsRequest     struct{}
	UpdateStatusRequest   struct{}
)

func (QueryEnabledRequest) Method() string   { return MethodQueryEnabled }
func (SetEnabledRequest) Method() string     { return MethodSetEnabled }
func (ResetNetworkRequest) Method() string   { return MethodResetNetwork }
func (DownloadSubRequest) Method() string    { return MethodDownloadSub }
func (DownloadStatusRequest) Method() string { return MethodDownloadStatus }
func (ListSubsRequest) Method() string       { return MethodListSubs }
func (DeleteSubRequest) Method() string      { return MethodDeleteSub }
func (SelectSubRequest) Method() string      { return MethodSelectSub }
func (UpdateSubsRequest) Method() string     { return MethodUpdateSubs }
func (UpdateStatusRequest) Method() string   { return MethodUpdateStatus }

// Methods lists every supported method in registration order.
var Methods = []string{
	MethodQueryEnabled,
	MethodSetEnabled,
	MethodResetNetwork,
	MethodDownloadSub,
	MethodDownloadStatus,
	MethodListSubs,
	MethodDeleteSub,
	MethodSelectSub,
	MethodUpdateSubs,
	MethodUpdateStatus,
}

// Decode maps positional params onto the request variant of method. A missing or
// mistyped first param means no input was provided and ok is false. Extra params are
// ignored.
func Decode(method string, params []Primitive) (Request, bool) {
	switch method {
	case MethodQueryEnabled:
		return QueryEnabledRequest{}, true
	case MethodSetEnabled:
		v, ok := param[bool](params)
		return SetEnabledRequest{Enabled: v}, ok
	case MethodResetNetwork:
		return ResetNetworkRequest{}, true
	case MethodDownloadSub:
		v, ok := param[string](params)
		return DownloadSubRequest{URL: v}, ok
	case MethodDownloadStatus:
		return DownloadStatusRequest{}, true
	case MethodListSubs:
		return ListSubsRequest{}, true
	case MethodDeleteSub:
		v, ok := param[float64](params)
		return DeleteSubRequest{Index: v}, ok
	case MethodSelectSub:
		v, ok := param[string](params)
		return SelectSubRequest{Path: v}, ok
	case MethodUpdateSubs:
		return UpdateSubsRequest{}, true
	case MethodUpdateStatus:
		return UpdateStatusRequest{}, true
	default:
		return nil, false
	}
}

func param[T bool | string | float64](params []Primitive) (T, bool) {
	var zero T
	if len(params) < 1 {
		return zero, false
	}

	v, ok := params[0].(T)

	return v, ok
}
