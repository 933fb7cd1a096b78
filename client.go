package hirograph

import (
	"context"
	"fmt"

	"github.com/nerrad567/hirograph/api"
	"github.com/nerrad567/hirograph/auth"
	"github.com/nerrad567/hirograph/config"
	"github.com/nerrad567/hirograph/logging"
	"github.com/nerrad567/hirograph/transport"
	"github.com/nerrad567/hirograph/ws"
)

// Connection bundles everything built from one profile: the transport, the
// version resolver, the shared token handler, and typed API clients.
//
// All components share the one token handler, so a single login and a
// single refresh serve every REST call and WebSocket session on this
// connection. Connection owns the handler and the optional token cache;
// Close tears both down.
type Connection struct {
	Profile  config.Profile
	Tokens   auth.Handler
	Versions *api.VersionResolver
	Graph    *api.GraphClient
	Auth     *api.AuthClient
	Apps     *api.AppClient

	profileName string
	transport   *transport.Client
	exec        *api.Executor
	cache       *auth.TokenCache
	logger      *logging.Logger
}

// Connect builds a connection for the named profile of a loaded config.
// An empty profileName selects the config's default profile.
func Connect(cfg *config.Config, profileName string, logger *logging.Logger) (*Connection, error) {
	if profileName == "" {
		profileName = cfg.Profile
	}
	profile, ok := cfg.Profiles[profileName]
	if !ok {
		return nil, fmt.Errorf("profile %q is not defined", profileName)
	}

	if logger == nil {
		logger = logging.Discard()
	}

	tc := transport.New(profile)
	versions := api.NewVersionResolver(tc, profile.RootURL)

	conn := &Connection{
		Profile:     profile,
		Versions:    versions,
		profileName: profileName,
		transport:   tc,
		logger:      logger,
	}

	tokens, err := conn.buildTokens(cfg, profile)
	if err != nil {
		return nil, err
	}
	conn.Tokens = tokens

	conn.exec = api.NewExecutor(tc, tokens)
	conn.exec.SetLogger(logger.Component("api"))
	conn.Graph = api.NewGraphClient(conn.exec, versions)
	conn.Auth = api.NewAuthClient(conn.exec, versions)
	conn.Apps = api.NewAppClient(conn.exec, versions)
	return conn, nil
}

// buildTokens picks the token handler the profile calls for: a fixed token,
// the password grant, or an environment variable, in that order.
func (c *Connection) buildTokens(cfg *config.Config, profile config.Profile) (auth.Handler, error) {
	switch {
	case profile.Token.Fixed != "":
		return auth.NewFixedHandler(profile.Token.Fixed), nil

	case profile.Credentials.Username != "":
		h := auth.NewPasswordHandler(c.transport, c.Versions.EndpointFunc("auth"), profile)
		h.SetLogger(c.logger.Component("auth"))
		if cfg.Cache.Enabled {
			cache, err := auth.OpenCache(cfg.Cache.Path)
			if err != nil {
				return nil, fmt.Errorf("opening token cache: %w", err)
			}
			c.cache = cache
			h.SetCache(cache, c.profileName)
		}
		return h, nil

	default:
		return auth.NewEnvHandler(profile.Token.EnvVar), nil
	}
}

// Executor exposes the authenticated executor for endpoints without a typed
// wrapper.
func (c *Connection) Executor() *api.Executor {
	return c.exec
}

// NewActionSession builds a WebSocket session speaking the action protocol,
// sharing this connection's token handler. The caller starts and stops the
// returned session; the action client is its listener.
func (c *Connection) NewActionSession(ctx context.Context, listener ws.ActionListener) (*ws.Session, *ws.ActionClient, error) {
	url, err := c.Versions.ResolveWebSocket(ctx, "action-ws")
	if err != nil {
		return nil, nil, err
	}

	client := ws.NewActionClient(listener, c.logger.Component("ws"))
	session := ws.NewSession(ws.SessionConfig{
		URL:         url,
		Subprotocol: "action-1.0.0",
		Tokens:      c.Tokens,
		Profile:     c.Profile,
		Listener:    client,
		Logger:      c.logger.Component("ws"),
	})
	client.Bind(session)
	return session, client, nil
}

// NewEventSession builds a WebSocket session speaking the event protocol,
// sharing this connection's token handler.
func (c *Connection) NewEventSession(ctx context.Context, onEvent ws.EventCallback, onError ws.ErrorCallback) (*ws.Session, *ws.EventClient, error) {
	url, err := c.Versions.ResolveWebSocket(ctx, "events-ws")
	if err != nil {
		return nil, nil, err
	}

	client := ws.NewEventClient(onEvent, onError, c.logger.Component("ws"))
	session := ws.NewSession(ws.SessionConfig{
		URL:         url,
		Subprotocol: "events-1.0.0",
		Tokens:      c.Tokens,
		Profile:     c.Profile,
		Listener:    client,
		Logger:      c.logger.Component("ws"),
	})
	client.Bind(session)
	return session, client, nil
}

// Close releases the connection's owned resources: the token handler and,
// when open, the token cache. Sessions built from this connection must be
// stopped by their owners first.
func (c *Connection) Close() error {
	var firstErr error
	if c.Tokens != nil {
		if err := c.Tokens.Close(); err != nil {
			firstErr = err
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
