package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	vecdemo "github.com/kailas-cloud/vecdemo/pkg/sdk"
)

// UploadAction uploads FILE to the images or knowledge backend.
func UploadAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("upload: FILE argument required")
	}
	f, err := vecdemo.FileFromPath(path)
	if err != nil {
		return err
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}

	var msg string
	switch b := cmd.String("backend"); b {
	case backendImages:
		id := cmd.String("id")
		if id == "" {
			return errors.New("upload: --id is required for the images backend")
		}
		msg, err = client.Images().Upload(ctx, id, f)
	case backendKnowledge:
		msg, err = client.Knowledge().Upload(ctx, f)
	default:
		return fmt.Errorf("upload: unknown backend %q", b)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out(cmd), msg)
	return err
}

// SearchAction prints the images ranked by similarity to IMAGE.
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errors.New("search: IMAGE argument required")
	}
	f, err := vecdemo.FileFromPath(path)
	if err != nil {
		return err
	}

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	ranked, err := client.Images().Search(ctx, f)
	if err != nil {
		return err
	}

	w := out(cmd)
	for _, img := range ranked {
		if _, err := fmt.Fprintf(w, "Rank %d\t%s\n", img.Rank, img.URL); err != nil {
			return err
		}
	}
	return nil
}

// AskAction prints the knowledge base's answer to QUERY, indented.
func AskAction(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")

	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	answer, err := client.Knowledge().Search(ctx, query)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, answer, "", "  "); err != nil {
		return fmt.Errorf("ask: indent answer: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(out(cmd))
	return err
}

// PreviewAction prints IMAGE as a data URL.
func PreviewAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return vecdemo.ErrNoFile
	}
	f, err := vecdemo.FileFromPath(path)
	if err != nil {
		return err
	}
	url, err := vecdemo.Preview(ctx, f)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out(cmd), url)
	return err
}

// HealthAction prints the backend health report and fails unless all are up.
func HealthAction(ctx context.Context, cmd *cli.Command) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	h := client.Health(ctx)

	enc := json.NewEncoder(out(cmd))
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"status": h.Status, "checks": h.Checks}); err != nil {
		return err
	}
	if h.Status != "ok" {
		return fmt.Errorf("health: backends %s", h.Status)
	}
	return nil
}

func newClient(cmd *cli.Command) (*vecdemo.Client, error) {
	opts := []vecdemo.Option{
		vecdemo.WithImagesBackend(cmd.String("images-url")),
		vecdemo.WithKnowledgeBackend(cmd.String("knowledge-url")),
		vecdemo.WithTimeout(cmd.Duration("timeout")),
	}
	if cmd.Bool("verbose") {
		opts = append(opts, vecdemo.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	return vecdemo.New(opts...)
}

func out(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}
