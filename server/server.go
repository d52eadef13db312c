package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort     = "8080"
	DefaultTLSMode  = TLSModeAutoCert
	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type UnknownTLSModeError struct {
	Mode string
}

func (err UnknownTLSModeError) Error() string {
	return fmt.Sprintf("unknown tls mode %q", err.Mode)
}

// Run serves handler until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.listen(gctx, g, srv)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		slog.InfoContext(shutdownCtx, "shutting down server")

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}

		return nil
	})

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}

	return nil
}

func (s *Server) listen(ctx context.Context, g *errgroup.Group, srv *http.Server) error {
	if !s.TLS.Enabled {
		slog.InfoContext(ctx, "server listening", "address", "http://"+srv.Addr)

		return srv.ListenAndServe()
	}

	switch s.TLS.Mode {
	case TLSModeFile:
		slog.InfoContext(ctx, "server listening", "address", "https://"+srv.Addr)

		return srv.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
	case TLSModeAutoCert:
		autoCert := s.TLS.AutoCert
		if autoCert == nil {
			autoCert = &ServerTLSAutoCert{}
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(autoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(autoCert.Domains...),
			Email:      autoCert.Email,
		}

		srv.TLSConfig = manager.TLSConfig()

		challengeSrv := &http.Server{
			Addr:              net.JoinHostPort(s.Host, "80"),
			Handler:           manager.HTTPHandler(nil),
			ReadHeaderTimeout: readHeaderTimeout,
		}

		g.Go(func() error {
			err := challengeSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve acme challenges: %w", err)
			}

			return nil
		})

		g.Go(func() error {
			<-ctx.Done()

			return challengeSrv.Close()
		})

		slog.InfoContext(ctx, "server listening", "address", domainsToHTTPSAddress(autoCert.Domains))

		return srv.ListenAndServeTLS("", "")
	default:
		return &UnknownTLSModeError{Mode: s.TLS.Mode}
	}
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))
	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
