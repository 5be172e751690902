package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/jun/jotflow/internal/composer"
	"github.com/jun/jotflow/internal/config"
	"github.com/jun/jotflow/internal/crypto"
	"github.com/jun/jotflow/internal/daily"
	"github.com/jun/jotflow/internal/handler"
	"github.com/jun/jotflow/internal/logging"
	"github.com/jun/jotflow/internal/outliner"
	"github.com/jun/jotflow/internal/outliner/memory"
	"github.com/jun/jotflow/internal/outliner/workflowy"
	"github.com/jun/jotflow/internal/pagetitle"
	"github.com/jun/jotflow/internal/secret"
	"github.com/jun/jotflow/internal/session"
)

// App holds the request router and its dependencies.
type App struct {
	cfg   *config.Config
	log   logging.Logger
	auth  *handler.AuthHandler
	send  *handler.SendHandler
	nodes *handler.NodesHandler
	title *handler.TitleHandler

	// configErr is set when the encryption secret could not be resolved.
	// Every request then fails with 500 rather than running with a
	// predictable key.
	configErr error
}

// New initializes the application dependencies.
func New(ctx context.Context) *App {
	log := logging.NewDefault()

	cfg, err := config.Load()
	if err != nil {
		return &App{log: log, configErr: fmt.Errorf("load configuration: %w", err)}
	}

	app := &App{cfg: cfg, log: log}

	var resolver secret.Resolver
	var encryptor crypto.Encryptor
	var provider outliner.Provider

	if cfg.DevMode {
		resolver = secret.NewEnvResolver()
		encryptor = crypto.NewMockEncryptor()
		provider = memory.NewProvider(memory.New())
		log.Info(ctx, "running in dev mode", "storage", "memory", "encryptor", "mock")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			app.configErr = fmt.Errorf("load AWS config: %w", err)
			return app
		}
		resolver = secret.NewSSMResolver(ssm.NewFromConfig(awsCfg))
		provider = workflowy.NewProvider(cfg.OutlinerBaseURL, cfg.SubmitTimeout)
		if cfg.KMSKeyID != "" {
			encryptor = crypto.NewKMSEncryptor(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
		}
	}

	passphrase, err := resolver.GetSecret(ctx, cfg.EncryptionKeyParam)
	if err != nil {
		// Without the secret every issued session would share a known key.
		app.configErr = fmt.Errorf("resolve encryption key: %w", err)
		return app
	}
	if encryptor == nil {
		encryptor = crypto.NewAESEncryptor(passphrase)
	}

	sessions := session.NewManager(encryptor, passphrase)
	fetcher := pagetitle.NewHTTPFetcher(cfg.FetchTimeout)
	svc := composer.NewService(daily.NewResolver(log), fetcher, log, cfg.Location())

	app.auth = handler.NewAuthHandler(sessions, provider, cfg.CookieName, log)
	app.send = handler.NewSendHandler(sessions, provider, svc, cfg.CookieName, log)
	app.nodes = handler.NewNodesHandler(sessions, provider, cfg.CookieName, log)
	app.title = handler.NewTitleHandler(sessions, fetcher, cfg.CookieName, log)
	return app
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimPrefix(req.Path, "/api")
	method := req.HTTPMethod

	if method == http.MethodOptions {
		return app.cors(req, events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	if app.configErr != nil {
		app.log.Error(ctx, "request rejected", "error", app.configErr)
		return app.cors(req, events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"error":"Server configuration error"}`,
			Headers:    map[string]string{"Content-Type": "application/json"},
		}), nil
	}

	app.log.Info(ctx, "request", "method", method, "path", path)

	// Handlers report failures in the response body, so a returned error
	// is an internal fault.
	must := func(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
		if err != nil {
			app.log.Error(ctx, "handler error", "error", err)
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusInternalServerError,
				Body:       `{"error":"Internal server error"}`,
				Headers:    map[string]string{"Content-Type": "application/json"},
			}
		}
		return resp
	}

	switch {
	case path == "/auth" && method == http.MethodPost:
		return app.cors(req, must(app.auth.Login(ctx, req))), nil
	case path == "/auth/logout" && method == http.MethodPost:
		return app.cors(req, must(app.auth.Logout(ctx, req))), nil
	case path == "/auth/check" && method == http.MethodGet:
		return app.cors(req, must(app.auth.Check(ctx, req))), nil
	case path == "/send" && method == http.MethodPost:
		return app.cors(req, must(app.send.Send(ctx, req))), nil
	case path == "/nodes" && method == http.MethodGet:
		return app.cors(req, must(app.nodes.List(ctx, req))), nil
	case path == "/history" && method == http.MethodGet:
		return app.cors(req, must(app.nodes.History(ctx, req))), nil
	case path == "/fetch-title" && method == http.MethodGet:
		return app.cors(req, must(app.title.Fetch(ctx, req))), nil
	}

	return app.cors(req, events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf(`{"error":"Not found: %s %s"}`, method, path),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}), nil
}

// cors adds CORS headers when the request Origin is on the allowlist.
func (app *App) cors(req events.APIGatewayProxyRequest, resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	origin := ""
	for k, v := range req.Headers {
		if strings.EqualFold(k, "Origin") {
			origin = v
			break
		}
	}
	if origin == "" || app.cfg == nil || !app.originAllowed(origin) {
		return resp
	}
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = origin
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type"
	return resp
}

func (app *App) originAllowed(origin string) bool {
	for _, allowed := range app.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
