// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"time"
)

// RunStatus reports whether the server is reachable and healthy.
func RunStatus(ctx context.Context, env Env, args Args) error {
	_, logger, client, err := clientSetup(env, args)
	if err != nil {
		return err
	}
	defer logger.Close()

	return OutputJSON(env.Stdout, args.JSON, "status", func() (any, error) {
		start := time.Now()
		h, err := client.Health(ctx)
		latency := time.Since(start)
		if err != nil {
			return nil, interrupted(ctx, err)
		}
		logger.Debug("HEALTH_CHECKED", "status", h.Status, "latency", latency)

		data := StatusData{
			Server:         client.BaseURL(),
			Reachable:      true,
			Status:         h.Status,
			Version:        h.Version,
			Provider:       h.Provider,
			ProviderStatus: h.ProviderStatus,
			Messages:       h.Messages,
			LatencyMs:      latency.Milliseconds(),
		}
		if !args.JSON {
			printStatus(env, data)
		}
		return data, nil
	})
}

func printStatus(env Env, d StatusData) {
	w := env.Stdout
	fmt.Fprintln(w, TitleStyle.Render("streamchat status"))
	fmt.Fprintln(w, RenderSeparator(40))
	fmt.Fprintf(w, "%s%s %s\n", RenderLabel("Server"), RenderStatus(d.Status), ValueStyle.Render(d.Server))
	if d.Version != "" {
		fmt.Fprintf(w, "%s%s\n", RenderLabel("Version"), ValueStyle.Render(d.Version))
	}
	if d.Provider != "" {
		fmt.Fprintf(w, "%s%s %s\n", RenderLabel("Provider"), RenderStatus(d.ProviderStatus), ValueStyle.Render(d.Provider))
	}
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Messages"), ValueStyle.Render(fmt.Sprint(d.Messages)))
	fmt.Fprintf(w, "%s%s\n", RenderLabel("Latency"), DimStyle.Render(fmt.Sprintf("%dms", d.LatencyMs)))
}
