// Command taskflow is a terminal client for the TaskFlow server: sign in,
// list and manage projects, and watch push events live.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	taskflow "github.com/jrsteele09/go-taskflow-client"
	"github.com/jrsteele09/go-taskflow-client/api"
	"github.com/jrsteele09/go-taskflow-client/internal/config"
	"github.com/jrsteele09/go-taskflow-client/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cmd := flag.String("cmd", "projects", "Command: login|register|projects|logout|logout-all|watch")
	email := flag.String("email", "", "Email for login/register")
	password := flag.String("password", "", "Password for login/register")
	name := flag.String("name", "", "Display name for register")
	backend := flag.String("store", "file", "Credential store backend: file|keyring")
	flag.Parse()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := newLogger(c.GetLogLevel())

	st, err := newStore(c, *backend)
	if err != nil {
		return err
	}

	app := taskflow.New(taskflow.Options{
		APIBaseURL: c.GetAPIBaseURL(),
		SocketURL:  c.GetSocketURL(),
		Store:      st,
		Router:     consoleRouter{logger},
		Logger:     logger,
	})
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.GetRequestTimeout())
	defer cancel()

	switch *cmd {
	case "login":
		return login(ctx, app, *email, *password)
	case "register":
		return register(ctx, app, *name, *email, *password)
	case "projects":
		return listProjects(ctx, app)
	case "logout":
		app.Auth.Logout(ctx)
		fmt.Println("Signed out.")
		return nil
	case "logout-all":
		app.Auth.LogoutAll(ctx)
		fmt.Println("Signed out everywhere.")
		return nil
	case "watch":
		return watch(ctx, app)
	default:
		return fmt.Errorf("unknown command %q", *cmd)
	}
}

func login(ctx context.Context, app *taskflow.App, email, password string) error {
	if err := app.Auth.Login(ctx, email, password); err != nil {
		return errors.New(api.UserMessage(err))
	}
	user := app.Auth.User()
	fmt.Printf("Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func register(ctx context.Context, app *taskflow.App, name, email, password string) error {
	if err := app.Auth.Register(ctx, name, email, password); err != nil {
		return errors.New(api.UserMessage(err))
	}
	user := app.Auth.User()
	fmt.Printf("Welcome, %s!\n", user.Name)
	return nil
}

func listProjects(ctx context.Context, app *taskflow.App) error {
	if err := app.Auth.CheckAuth(ctx); err != nil {
		return err
	}
	if !app.Auth.IsAuthenticated() {
		if msg := app.Auth.LastSessionMessage(); msg != "" {
			return errors.New(msg)
		}
		return errors.New("not signed in; run with -cmd login first")
	}

	for _, p := range app.Projects.Projects() {
		kind := "personal"
		if p.Collaborative {
			kind = fmt.Sprintf("collaborative, %d members", len(p.Members))
		}
		fmt.Printf("  #%d  %s  (%s)\n", p.ID, p.Name, kind)
	}
	return nil
}

// watch stays connected and prints push events until interrupted.
func watch(ctx context.Context, app *taskflow.App) error {
	if err := listProjects(ctx, app); err != nil {
		return err
	}

	fmt.Println("Watching for changes; Ctrl-C to stop.")
	waitForStopSignal()
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func newStore(c config.Config, backend string) (store.Store, error) {
	switch backend {
	case "keyring":
		return store.NewKeyring(c.GetKeyringService()), nil
	case "file":
		passphrase := config.GetEnv("TASKFLOW_STORE_PASSPHRASE", "taskflow-local")
		return store.NewFile(c.GetCredentialsFile(), []byte(passphrase)), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// consoleRouter stands in for screen navigation: route changes are logged
// rather than rendered.
type consoleRouter struct {
	log zerolog.Logger
}

func (r consoleRouter) Replace(route string) {
	r.log.Debug().Str("route", route).Msg("navigate")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
