package devcore

import (
	"context"
	"encoding/json"

	"github.com/stepherg/rayshell/internal/remote"
	"github.com/stepherg/rayshell/internal/rpc"
)

func query[R any](fn func(context.Context) (R, error)) rpc.HandlerFunc {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		return fn(ctx)
	}
}

func query1[A, R any](fn func(context.Context, A) (R, error)) rpc.HandlerFunc {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var a A
		if err := rpc.Params(params, &a); err != nil {
			return nil, err
		}
		return fn(ctx, a)
	}
}

func command(fn func(context.Context) error) rpc.HandlerFunc {
	return func(ctx context.Context, _ json.RawMessage) (any, error) {
		if err := fn(ctx); err != nil {
			return nil, err
		}
		return true, nil
	}
}

func command1[A any](fn func(context.Context, A) error) rpc.HandlerFunc {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var a A
		if err := rpc.Params(params, &a); err != nil {
			return nil, err
		}
		if err := fn(ctx, a); err != nil {
			return nil, err
		}
		return true, nil
	}
}

// Mux serves the core's command surface over JSON-RPC.
func (c *Core) Mux() *rpc.Mux {
	m := rpc.NewMux()

	m.HandleFunc(remote.MethodGetProfiles, query1(c.GetProfiles))
	m.HandleFunc(remote.MethodAddProfile, command1(c.AddProfile))
	m.HandleFunc(remote.MethodUpdateProfile, command1(c.UpdateProfile))
	m.HandleFunc(remote.MethodDeleteProfiles, command1(c.DeleteProfiles))
	m.HandleFunc(remote.MethodSetActiveProfile, command1(c.SetActiveProfile))
	m.HandleFunc(remote.MethodImportFromText, query1(c.ImportFromText))
	m.HandleFunc(remote.MethodExportShareLink, query1(c.ExportShareLink))
	m.HandleFunc(remote.MethodTestProfiles, query1(c.TestProfiles))
	m.HandleFunc(remote.MethodTestAllProfiles, query(c.TestAllProfiles))

	m.HandleFunc(remote.MethodGetSubscriptions, query(c.GetSubscriptions))
	m.HandleFunc(remote.MethodAddSubscription, command1(c.AddSubscription))
	m.HandleFunc(remote.MethodUpdateSubscription, command1(c.UpdateSubscription))
	m.HandleFunc(remote.MethodDeleteSubscription, command1(c.DeleteSubscription))
	m.HandleFunc(remote.MethodSyncSubscription, query1(c.SyncSubscription))
	m.HandleFunc(remote.MethodSyncAllSubscriptions, query(c.SyncAllSubscriptions))

	m.HandleFunc(remote.MethodGetRoutings, query(c.GetRoutings))
	m.HandleFunc(remote.MethodAddRouting, command1(c.AddRouting))
	m.HandleFunc(remote.MethodUpdateRouting, command1(c.UpdateRouting))
	m.HandleFunc(remote.MethodDeleteRouting, command1(c.DeleteRouting))
	m.HandleFunc(remote.MethodSetActiveRouting, command1(c.SetActiveRouting))

	m.HandleFunc(remote.MethodGetDNSConfig, query(c.GetDNSConfig))
	m.HandleFunc(remote.MethodUpdateDNSConfig, command1(c.UpdateDNSConfig))

	m.HandleFunc(remote.MethodGetConfig, query(c.GetConfig))
	m.HandleFunc(remote.MethodUpdateConfig, command1(c.UpdateConfig))
	m.HandleFunc(remote.MethodSetProxyMode, command1(c.SetProxyMode))

	m.HandleFunc(remote.MethodGetLogs, query1(c.GetLogs))
	m.HandleFunc(remote.MethodClearLogs, command(c.ClearLogs))

	m.HandleFunc(remote.MethodGetCoreStatus, query(c.GetCoreStatus))
	m.HandleFunc(remote.MethodStartCore, command(c.StartCore))
	m.HandleFunc(remote.MethodStopCore, command(c.StopCore))
	m.HandleFunc(remote.MethodRestartCore, command(c.RestartCore))
	return m
}
