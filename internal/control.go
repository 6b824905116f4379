package internal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/francois-poidevin/stationtracker/config"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRunning = errors.New("tracking already processing")
	ErrNotRunning     = errors.New("tracking is not processing currently")
)

// Controller starts and stops tracking on demand, one run at a time.
type Controller struct {
	Log  *logrus.Logger
	Conf config.Configuration

	run func(ctx context.Context, log *logrus.Logger, conf config.Configuration) error

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(log *logrus.Logger, conf config.Configuration) *Controller {
	return &Controller{Log: log, Conf: conf, run: Execute}
}

// Start launches a tracking run in the background.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel, c.done = cancel, done

	go func() {
		defer close(done)
		if err := c.run(ctx, c.Log, c.Conf); err != nil {
			c.Log.WithContext(ctx).WithFields(logrus.Fields{
				"Error": err,
			}).Error("Error in Execute processing")
		}
		cancel()

		c.mu.Lock()
		if c.done == done {
			c.cancel, c.done = nil, nil
		}
		c.mu.Unlock()
	}()
	return nil
}

// Stop cancels the current run and waits until its surfaces are closed.
func (c *Controller) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if done == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	return nil
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done != nil
}

// Router exposes the control endpoints under /api/v1.
func (c *Controller) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/start", c.startService).Methods(http.MethodGet)
	api.HandleFunc("/stop", c.stopService).Methods(http.MethodGet)
	api.HandleFunc("/status", c.statusService).Methods(http.MethodGet)
	return r
}

// Start tracking service
func (c *Controller) startService(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := c.Start(); err != nil {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "start tracking service already processing"}`))
		return
	}
	w.WriteHeader(http.StatusAccepted)
	w.Write([]byte(`{"message": "start tracking service called"}`))
}

// Stop tracking service
func (c *Controller) stopService(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := c.Stop(); err != nil {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message": "tracking service is not processing currently"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"message": "stop tracking service called and done"}`))
}

func (c *Controller) statusService(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if c.Running() {
		w.Write([]byte(`{"running": true}`))
		return
	}
	w.Write([]byte(`{"running": false}`))
}

// Serve runs the control API on listen until a signal is caught or ctx is done,
// then stops tracking if it is still running.
func Serve(ctx context.Context,
	log *logrus.Logger,
	conf config.Configuration,
	listen string) error {

	return serve(ctx, log, NewController(log, conf), listen)
}

func serve(ctx context.Context, log *logrus.Logger, ctrl *Controller, listen string) error {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           ctrl.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithContext(ctx).WithFields(logrus.Fields{
		"listen": ln.Addr().String(),
	}).Info("Control API listening")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
		cancel()
	}()

	sigCatch(ctx, log)

	if ctrl.Running() {
		ctrl.Stop()
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	srv.Shutdown(shutdownCtx)

	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
