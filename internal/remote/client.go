// Package remote is the typed command surface of the proxy core. Every
// method is one JSON-RPC call with positional params.
package remote

import (
	"context"

	"github.com/stepherg/rayshell/internal/model"
	"github.com/stepherg/rayshell/internal/rpc"
)

// Method names understood by the core.
const (
	MethodGetProfiles      = "GetProfiles"
	MethodAddProfile       = "AddProfile"
	MethodUpdateProfile    = "UpdateProfile"
	MethodDeleteProfiles   = "DeleteProfiles"
	MethodSetActiveProfile = "SetActiveProfile"
	MethodImportFromText   = "ImportFromText"
	MethodExportShareLink  = "ExportShareLink"
	MethodTestProfiles     = "TestProfiles"
	MethodTestAllProfiles  = "TestAllProfiles"

	MethodGetSubscriptions     = "GetSubscriptions"
	MethodAddSubscription      = "AddSubscription"
	MethodUpdateSubscription   = "UpdateSubscription"
	MethodDeleteSubscription   = "DeleteSubscription"
	MethodSyncSubscription     = "SyncSubscription"
	MethodSyncAllSubscriptions = "SyncAllSubscriptions"

	MethodGetRoutings      = "GetRoutings"
	MethodAddRouting       = "AddRouting"
	MethodUpdateRouting    = "UpdateRouting"
	MethodDeleteRouting    = "DeleteRouting"
	MethodSetActiveRouting = "SetActiveRouting"

	MethodGetDNSConfig    = "GetDNSConfig"
	MethodUpdateDNSConfig = "UpdateDNSConfig"

	MethodGetConfig    = "GetConfig"
	MethodUpdateConfig = "UpdateConfig"
	MethodSetProxyMode = "SetProxyMode"

	MethodGetLogs   = "GetLogs"
	MethodClearLogs = "ClearLogs"

	MethodGetCoreStatus = "GetCoreStatus"
	MethodStartCore     = "StartCore"
	MethodStopCore      = "StopCore"
	MethodRestartCore   = "RestartCore"
)

// Client issues core commands over any rpc.Caller.
type Client struct {
	caller rpc.Caller
}

func New(caller rpc.Caller) *Client { return &Client{caller: caller} }

func args(v ...any) []any { return v }

// Profiles

func (c *Client) GetProfiles(ctx context.Context, subID string) ([]model.Profile, error) {
	var out []model.Profile
	err := c.caller.Call(ctx, MethodGetProfiles, args(subID), &out)
	return out, err
}

func (c *Client) AddProfile(ctx context.Context, p model.Profile) error {
	return c.caller.Call(ctx, MethodAddProfile, args(p), nil)
}

func (c *Client) UpdateProfile(ctx context.Context, p model.Profile) error {
	return c.caller.Call(ctx, MethodUpdateProfile, args(p), nil)
}

func (c *Client) DeleteProfiles(ctx context.Context, ids []string) error {
	return c.caller.Call(ctx, MethodDeleteProfiles, args(ids), nil)
}

func (c *Client) SetActiveProfile(ctx context.Context, id string) error {
	return c.caller.Call(ctx, MethodSetActiveProfile, args(id), nil)
}

// ImportFromText parses share links or subscription text and returns how
// many profiles were added.
func (c *Client) ImportFromText(ctx context.Context, text string) (int, error) {
	var n int
	err := c.caller.Call(ctx, MethodImportFromText, args(text), &n)
	return n, err
}

func (c *Client) ExportShareLink(ctx context.Context, id string) (string, error) {
	var link string
	err := c.caller.Call(ctx, MethodExportShareLink, args(id), &link)
	return link, err
}

func (c *Client) TestProfiles(ctx context.Context, ids []string) ([]model.SpeedTestResult, error) {
	var out []model.SpeedTestResult
	err := c.caller.Call(ctx, MethodTestProfiles, args(ids), &out)
	return out, err
}

func (c *Client) TestAllProfiles(ctx context.Context) ([]model.SpeedTestResult, error) {
	var out []model.SpeedTestResult
	err := c.caller.Call(ctx, MethodTestAllProfiles, nil, &out)
	return out, err
}

// Subscriptions

func (c *Client) GetSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	var out []model.Subscription
	err := c.caller.Call(ctx, MethodGetSubscriptions, nil, &out)
	return out, err
}

func (c *Client) AddSubscription(ctx context.Context, s model.Subscription) error {
	return c.caller.Call(ctx, MethodAddSubscription, args(s), nil)
}

func (c *Client) UpdateSubscription(ctx context.Context, s model.Subscription) error {
	return c.caller.Call(ctx, MethodUpdateSubscription, args(s), nil)
}

func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.caller.Call(ctx, MethodDeleteSubscription, args(id), nil)
}

// SyncSubscription refetches one subscription and returns the number of
// profiles it now holds.
func (c *Client) SyncSubscription(ctx context.Context, id string) (int, error) {
	var n int
	err := c.caller.Call(ctx, MethodSyncSubscription, args(id), &n)
	return n, err
}

func (c *Client) SyncAllSubscriptions(ctx context.Context) (map[string]int, error) {
	var out map[string]int
	err := c.caller.Call(ctx, MethodSyncAllSubscriptions, nil, &out)
	return out, err
}

// Routings

func (c *Client) GetRoutings(ctx context.Context) ([]model.Routing, error) {
	var out []model.Routing
	err := c.caller.Call(ctx, MethodGetRoutings, nil, &out)
	return out, err
}

func (c *Client) AddRouting(ctx context.Context, r model.Routing) error {
	return c.caller.Call(ctx, MethodAddRouting, args(r), nil)
}

func (c *Client) UpdateRouting(ctx context.Context, r model.Routing) error {
	return c.caller.Call(ctx, MethodUpdateRouting, args(r), nil)
}

func (c *Client) DeleteRouting(ctx context.Context, id string) error {
	return c.caller.Call(ctx, MethodDeleteRouting, args(id), nil)
}

func (c *Client) SetActiveRouting(ctx context.Context, id string) error {
	return c.caller.Call(ctx, MethodSetActiveRouting, args(id), nil)
}

// DNS and config

func (c *Client) GetDNSConfig(ctx context.Context) (model.DNS, error) {
	var out model.DNS
	err := c.caller.Call(ctx, MethodGetDNSConfig, nil, &out)
	return out, err
}

func (c *Client) UpdateDNSConfig(ctx context.Context, d model.DNS) error {
	return c.caller.Call(ctx, MethodUpdateDNSConfig, args(d), nil)
}

func (c *Client) GetConfig(ctx context.Context) (model.Config, error) {
	var out model.Config
	err := c.caller.Call(ctx, MethodGetConfig, nil, &out)
	return out, err
}

func (c *Client) UpdateConfig(ctx context.Context, cfg model.Config) error {
	return c.caller.Call(ctx, MethodUpdateConfig, args(cfg), nil)
}

func (c *Client) SetProxyMode(ctx context.Context, mode model.ProxyMode) error {
	return c.caller.Call(ctx, MethodSetProxyMode, args(mode), nil)
}

// Logs

func (c *Client) GetLogs(ctx context.Context, limit int) ([]string, error) {
	var out []string
	err := c.caller.Call(ctx, MethodGetLogs, args(limit), &out)
	return out, err
}

func (c *Client) ClearLogs(ctx context.Context) error {
	return c.caller.Call(ctx, MethodClearLogs, nil, nil)
}

// Core lifecycle

func (c *Client) GetCoreStatus(ctx context.Context) (model.CoreStatus, error) {
	var out model.CoreStatus
	err := c.caller.Call(ctx, MethodGetCoreStatus, nil, &out)
	return out, err
}

func (c *Client) StartCore(ctx context.Context) error {
	return c.caller.Call(ctx, MethodStartCore, nil, nil)
}

func (c *Client) StopCore(ctx context.Context) error {
	return c.caller.Call(ctx, MethodStopCore, nil, nil)
}

func (c *Client) RestartCore(ctx context.Context) error {
	return c.caller.Call(ctx, MethodRestartCore, nil, nil)
}
