package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"stopmo/internal/session"
	"stopmo/internal/shared"
)

// SessionSet stores the provided credential fields in the session database.
func (r *Runner) SessionSet(ctx context.Context, cmd *cli.Command) error {
	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	pairs := map[string]string{
		session.KeyStorageMode: cmd.String("mode"),
		session.KeyEndpoint:    cmd.String("endpoint"),
		session.KeyBucket:      cmd.String("bucket"),
		session.KeyAccessToken: cmd.String("token"),
		session.KeyProjectID:   cmd.String("project"),
	}

	if mode := pairs[session.KeyStorageMode]; mode != "" &&
		mode != shared.StorageModeAPI && mode != shared.StorageModeBucket {
		return fmt.Errorf("%w: mode must be %q or %q", shared.ErrInvalidFlag,
			shared.StorageModeAPI, shared.StorageModeBucket)
	}

	updated := 0
	for key, value := range pairs {
		if value == "" {
			continue
		}
		if err := store.Set(key, value); err != nil {
			return err
		}
		updated++
	}

	if updated == 0 {
		return fmt.Errorf("%w: nothing to set (see --mode, --endpoint, --bucket, --token, --project)", shared.ErrMissingArgument)
	}

	r.logger.Info("session updated", "fields", updated)
	r.writePlain("✓ Session updated (%d fields)\n", updated)
	return nil
}

// SessionShow prints the stored session with the token redacted.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	creds, err := store.Load()
	if err != nil {
		return err
	}
	redacted := creds.Redacted()

	if cmd.Bool("json") {
		return r.writeJSON(redacted, cmd.Bool("pretty"))
	}

	r.writePlain("Storage mode: %s\n", valueOrUnset(redacted.StorageMode))
	r.writePlain("Endpoint:     %s\n", valueOrUnset(redacted.Endpoint))
	r.writePlain("Bucket:       %s\n", valueOrUnset(redacted.Bucket))
	r.writePlain("Access token: %s\n", valueOrUnset(redacted.AccessToken))
	r.writePlain("Project:      %s\n", valueOrUnset(redacted.ProjectID))
	return nil
}

// SessionClear removes one key or the whole session.
func (r *Runner) SessionClear(ctx context.Context, cmd *cli.Command) error {
	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if key := cmd.String("key"); key != "" {
		if err := store.Clear(key); err != nil {
			return err
		}
		r.writePlain("✓ Cleared session key %s\n", key)
		return nil
	}

	if err := store.ClearAll(); err != nil {
		return err
	}
	r.writePlain("✓ Session cleared\n")
	return nil
}

// SessionImportCurl extracts an endpoint and bearer token from a
// captured curl command and stores them in the session.
//
// Useful when credentials are handed around as a copy-pasted request
// from the browser's network inspector.
func (r *Runner) SessionImportCurl(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var request *shared.CurlRequest
	var err error
	if curlFile != "" {
		request, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		request, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	creds := session.Credentials{
		Endpoint:    request.BaseURL(),
		AccessToken: request.BearerToken(),
		ProjectID:   cmd.String("project"),
	}
	if creds.Endpoint == "" {
		return fmt.Errorf("%w: no URL found in cURL command", shared.ErrInvalidInput)
	}
	if creds.AccessToken != "" {
		creds.StorageMode = shared.StorageModeAPI
	}

	store, cleanup, err := r.openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Import(creds); err != nil {
		return err
	}

	r.writePlain("✓ Session imported from cURL\n")
	r.writePlain("Endpoint: %s\n", creds.Endpoint)
	if creds.AccessToken != "" {
		r.writePlain("Access token captured (api mode)\n")
	} else {
		r.writePlain("No bearer token found; session left in bucket mode\n")
	}
	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(unset)"
	}
	return v
}

// sessionCommand handles persisted credential state
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage stored credentials and the active project",
		Commands: []*cli.Command{
			{
				Name:  "set",
				Usage: "Store credential fields",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Storage mode: api or bucket",
					},
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "Storage endpoint base URL",
					},
					&cli.StringFlag{
						Name:  "bucket",
						Usage: "Bucket name (bucket mode)",
					},
					&cli.StringFlag{
						Name:  "token",
						Usage: "Bearer token (api mode)",
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Active project ID",
					},
				},
				Action: r.SessionSet,
			},
			{
				Name:  "show",
				Usage: "Print the stored session (token redacted)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.SessionShow,
			},
			{
				Name:  "clear",
				Usage: "Clear one key or the whole session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "key",
						Usage: "Single session key to clear",
					},
				},
				Action: r.SessionClear,
			},
			{
				Name:  "import-curl",
				Usage: "Extract endpoint and token from a captured cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command string",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "project",
						Aliases: []string{"p"},
						Usage:   "Also set the active project ID",
					},
				},
				Action: r.SessionImportCurl,
			},
		},
	}
}
