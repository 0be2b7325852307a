// Copyright 2025 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pjscruggs/slogcall/internal/greeting"
	"github.com/pjscruggs/slogcall/slogcallconfig"
	"github.com/pjscruggs/slogcall/slogcallhttp"
)

func newServeCommand(load func() settings) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /greet/{name} and GET /healthz over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := load()
			ic, diagnostics, err := buildInterceptor(s, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if s.ConfigFile != "" {
				if err := slogcallconfig.Watch(ctx, s.ConfigFile, ic.Resolver(), diagnostics, nil); err != nil {
					return err
				}
			}

			g, err := newGreeter(ic, greeting.NewService(nil))
			if err != nil {
				return err
			}
			handler := slogcallhttp.Middleware(
				slogcallhttp.WithInterceptor(ic),
				slogcallhttp.WithTargetName("DemoHTTP"),
				slogcallhttp.WithSkipPaths("/healthz"),
			)(newMux(g))

			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			diagnostics.Warn("slogcall-demo: listening", "addr", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// newMux serves the greeter. Domain errors map to 400.
func newMux(g greeting.Greeter) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /greet/{name}", func(w http.ResponseWriter, r *http.Request) {
		res := g.Greet(r.Context(), r.PathValue("name"))
		w.Header().Set("Content-Type", "application/json")
		msg, ok := res.Value()
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": res.Errors()})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": msg})
	})
	return mux
}
