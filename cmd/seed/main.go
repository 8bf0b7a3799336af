// Command seed creates the events of a YAML seed file on a running ledger
// server, signing requests as the file's organizer.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/ticket-ledger/internal/config"
	"github.com/iliyamo/ticket-ledger/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var (
		filePath string
		server   string
		secret   string
		ttl      int
		dryRun   bool
	)
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "seed.yaml", "path to the YAML seed file")
	flagSet.StringVar(&server, "server", envOr("LEDGER_URL", "http://localhost:8080"), "ledger server base URL")
	flagSet.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "JWT signing secret (default $JWT_SECRET)")
	flagSet.IntVar(&ttl, "ttl", config.AccessTokenTTL(), "token lifetime in minutes (default $ACCESS_TOKEN_TTL_MIN or 15)")
	flagSet.BoolVar(&dryRun, "dry-run", false, "print the requests instead of sending them")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected argument: %s", extra[0])
	}

	f, err := loadSeedFile(filePath)
	if err != nil {
		return err
	}
	if dryRun {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		for _, ev := range f.Events {
			if err := enc.Encode(ev.requestBody()); err != nil {
				return err
			}
		}
		return nil
	}
	if secret == "" {
		return errors.New("missing --secret or JWT_SECRET")
	}
	if ttl < 1 {
		return fmt.Errorf("invalid --ttl %d", ttl)
	}

	tok, err := utils.NewAccessToken(secret, f.Organizer, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	c := &client{base: strings.TrimRight(server, "/"), token: tok.Token, http: &http.Client{Timeout: 10 * time.Second}}

	ctx := context.Background()
	for _, ev := range f.Events {
		var created struct {
			ID uint64 `json:"id"`
		}
		if err := c.send(ctx, http.MethodPost, "/v1/events", ev.requestBody(), &created); err != nil {
			return fmt.Errorf("create %q: %w", ev.Name, err)
		}
		fmt.Printf("created event %d %q\n", created.ID, ev.Name)
		for _, v := range ev.Validators {
			path := fmt.Sprintf("/v1/events/%d/validators/%s", created.ID, v)
			if err := c.send(ctx, http.MethodPut, path, map[string]bool{"enabled": true}, nil); err != nil {
				return fmt.Errorf("grant validator %s on event %d: %w", v, created.ID, err)
			}
			fmt.Printf("  validator %s\n", v)
		}
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

type client struct {
	base  string
	token string
	http  *http.Client
}

// send issues an authenticated JSON request and decodes a 2xx body into out.
func (c *client) send(ctx context.Context, method, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		var apiErr struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.Unmarshal(data, &apiErr)
		return fmt.Errorf("%s %s: %d %s (%s)", method, path, resp.StatusCode, apiErr.Error, apiErr.Code)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
