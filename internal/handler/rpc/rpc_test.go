package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/jgivc/proxyctl/internal/common"
	"github.com/jgivc/proxyctl/internal/entity"
	"github.com/jgivc/proxyctl/internal/service/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProxy struct {
	enabled  bool
	running  bool
	err      error
	setCalls []bool
}

func (f *fakeProxy) SetEnabled(enabled bool) (bool, error) {
	f.setCalls = append(f.setCalls, enabled)
	if f.err != nil {
		return false, f.err
	}
	f.enabled = enabled

	return enabled, nil
}

func (f *fakeProxy) Running() (bool, error) { return f.running, f.err }

type fakeNetwork struct {
	calls int
	err   error
}

func (f *fakeNetwork) Reset(ctx context.Context) error {
	f.calls++

	return f.err
}

type fakeSubs struct {
	downloads []string
	deletes   []int
	selects   []string
	updates   int
	list      []entity.Subscription
	status    entity.TaskStatus
	err       error
}

func (f *fakeSubs) Download(url string) (*subscription.Task, error) {
	f.downloads = append(f.downloads, url)

	return nil, f.err
}

func (f *fakeSubs) UpdateAll() (*subscription.Task, error) {
	f.updates++

	return nil, f.err
}

func (f *fakeSubs) Delete(index int) error {
	f.deletes = append(f.deletes, index)

	return f.err
}

func (f *fakeSubs) Select(path string) error {
	f.selects = append(f.selects, path)

	return f.err
}

func (f *fakeSubs) List() ([]entity.Subscription, error) { return f.list, f.err }

func (f *fakeSubs) DownloadStatus() (entity.TaskStatus, error) { return f.status, f.err }

func (f *fakeSubs) UpdateStatus() (entity.TaskStatus, error) { return f.status, f.err }

func newTestDispatcher() (*Dispatcher, *fakeProxy, *fakeNetwork, *fakeSubs) {
	proxy, net, subs := &fakeProxy{}, &fakeNetwork{}, &fakeSubs{}
	h := NewHandlers(proxy, net, subs, slog.New(slog.NewTextHandler(io.Discard, nil)))

	return NewDefaultDispatcher(h), proxy, net, subs
}

func call(t *testing.T, d *Dispatcher, method string, params ...Primitive) []Primitive {
	t.Helper()

	res, err := d.Call(method, params)
	require.NoError(t, err)
	require.NotNil(t, res)

	return res
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		method   string
		params   []Primitive
		expected Request
		ok       bool
	}{
		{name: "set enabled", method: MethodSetEnabled, params: []Primitive{true}, expected: SetEnabledRequest{Enabled: true}, ok: true},
		{name: "set enabled missing", method: MethodSetEnabled, ok: false, expected: SetEnabledRequest{}},
		{name: "set enabled mistyped", method: MethodSetEnabled, params: []Primitive{"true"}, expected: SetEnabledRequest{}},
		{name: "download", method: MethodDownloadSub, params: []Primitive{"https://a", 1.0}, expected: DownloadSubRequest{URL: "https://a"}, ok: true},
		{name: "delete", method: MethodDeleteSub, params: []Primitive{2.0}, expected: DeleteSubRequest{Index: 2}, ok: true},
		{name: "delete mistyped", method: MethodDeleteSub, params: []Primitive{"2"}, expected: DeleteSubRequest{}},
		{name: "select", method: MethodSelectSub, params: []Primitive{"/p.yaml"}, expected: SelectSubRequest{Path: "/p.yaml"}, ok: true},
		{name: "list ignores params", method: MethodListSubs, params: []Primitive{false}, expected: ListSubsRequest{}, ok: true},
		{name: "unknown", method: "nope"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, ok := Decode(tc.method, tc.params)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, req)
		})
	}
}

func TestEveryMethodHasAlias(t *testing.T) {
	targets := make(map[string]bool)
	for _, m := range Aliases {
		targets[m] = true
	}
	for _, m := range Methods {
		assert.True(t, targets[m], m)
	}
}

func TestSetEnabled(t *testing.T) {
	d, proxy, _, _ := newTestDispatcher()

	assert.Equal(t, []Primitive{}, call(t, d, MethodSetEnabled))
	assert.Equal(t, []Primitive{}, call(t, d, MethodSetEnabled, "yes"))
	assert.Empty(t, proxy.setCalls)

	assert.Equal(t, []Primitive{true}, call(t, d, MethodSetEnabled, true))
	assert.Equal(t, []Primitive{false}, call(t, d, "set_clash_status", false))
	assert.Equal(t, []bool{true, false}, proxy.setCalls)

	proxy.err = common.ErrLockPoisoned
	assert.Equal(t, []Primitive{}, call(t, d, MethodSetEnabled, true))
}

func TestQueryEnabled(t *testing.T) {
	d, proxy, _, _ := newTestDispatcher()

	proxy.running = true
	assert.Equal(t, []Primitive{true}, call(t, d, MethodQueryEnabled))

	proxy.err = errors.New("poisoned")
	assert.Equal(t, []Primitive{}, call(t, d, MethodQueryEnabled))
}

func TestResetNetwork(t *testing.T) {
	d, _, net, _ := newTestDispatcher()

	assert.Equal(t, []Primitive{}, call(t, d, MethodResetNetwork))
	net.err = errors.New("exit status 1")
	assert.Equal(t, []Primitive{}, call(t, d, MethodResetNetwork))
	assert.Equal(t, 2, net.calls)
}

func TestSubscriptionCalls(t *testing.T) {
	d, _, _, subs := newTestDispatcher()

	assert.Equal(t, []Primitive{}, call(t, d, MethodDownloadSub, "https://a"))
	assert.Equal(t, []Primitive{}, call(t, d, MethodDownloadSub, 3.0))
	assert.Equal(t, []string{"https://a"}, subs.downloads)

	assert.Equal(t, []Primitive{}, call(t, d, MethodSelectSub, "/p.yaml"))
	assert.Equal(t, []string{"/p.yaml"}, subs.selects)

	assert.Equal(t, []Primitive{}, call(t, d, MethodUpdateSubs))
	assert.Equal(t, 1, subs.updates)

	subs.err = errors.New("poisoned")
	assert.Equal(t, []Primitive{}, call(t, d, MethodDownloadSub, "https://b"))
	assert.Equal(t, []Primitive{}, call(t, d, MethodUpdateSubs))
}

func TestDelete(t *testing.T) {
	d, _, _, subs := newTestDispatcher()

	for _, bad := range []Primitive{-1.0, 1.5, math.NaN(), math.Inf(1), "0", nil} {
		assert.Equal(t, []Primitive{}, call(t, d, MethodDeleteSub, bad))
	}
	assert.Empty(t, subs.deletes)

	call(t, d, MethodDeleteSub, 2.0)
	call(t, d, "delete_sub", 0.0)
	assert.Equal(t, []int{2, 0}, subs.deletes)
}

func TestList(t *testing.T) {
	d, _, _, subs := newTestDispatcher()
	subs.list = []entity.Subscription{
		entity.NewSubscription("/subs/a.yaml", "https://a"),
		entity.NewSubscription("/subs/b.yaml", "https://b"),
	}

	res := call(t, d, MethodListSubs)
	require.Len(t, res, 1)
	assert.JSONEq(t, `[{"path":"/subs/a.yaml","url":"https://a"},{"path":"/subs/b.yaml","url":"https://b"}]`, res[0].(string))

	subs.err = errors.New("poisoned")
	assert.Equal(t, []Primitive{}, call(t, d, MethodListSubs))
}

func TestStatus(t *testing.T) {
	d, _, _, subs := newTestDispatcher()

	subs.status = entity.StatusFailed
	assert.Equal(t, []Primitive{"Failed"}, call(t, d, MethodDownloadStatus))
	subs.status = entity.StatusSuccess
	assert.Equal(t, []Primitive{"Success"}, call(t, d, MethodUpdateStatus))

	subs.err = common.ErrLockPoisoned
	assert.Equal(t, []Primitive{}, call(t, d, MethodDownloadStatus))
	assert.Equal(t, []Primitive{}, call(t, d, MethodUpdateStatus))
}

func TestUnknownMethod(t *testing.T) {
	d, _, _, _ := newTestDispatcher()

	_, err := d.Call("format_disk", nil)
	require.ErrorIs(t, err, common.ErrUnknownMethod)

	assert.Len(t, d.Methods(), len(Methods)+len(Aliases))
}
