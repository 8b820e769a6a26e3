// Package commands implements the vecdemo command line.
package commands

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/vecdemo/internal/version"
)

const (
	backendImages    = "images"
	backendKnowledge = "knowledge"
)

// New builds the vecdemo command tree.
func New() *cli.Command {
	return &cli.Command{
		Name:    "vecdemo",
		Usage:   "demo pages and client for the vector database demo backends",
		Version: version.Version + " (" + version.Commit + ")",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the image-search and knowledge-base pages",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "env",
						Usage:   "environment, selects config/<env>.yaml",
						Value:   "local",
						Sources: cli.EnvVars("ENV"),
					},
					&cli.StringFlag{
						Name:  "config",
						Usage: "explicit config file, overrides --env lookup",
					},
				},
				Action: ServeAction,
			},
			{
				Name:      "upload",
				Usage:     "upload an image or a document",
				ArgsUsage: "FILE",
				Flags: append(clientFlags(),
					&cli.StringFlag{
						Name:  "backend",
						Usage: "images or knowledge",
						Value: backendImages,
					},
					&cli.StringFlag{
						Name:  "id",
						Usage: "image id (images backend only)",
					},
				),
				Action: UploadAction,
			},
			{
				Name:      "search",
				Usage:     "search images similar to an image",
				ArgsUsage: "IMAGE",
				Flags:     clientFlags(),
				Action:    SearchAction,
			},
			{
				Name:      "ask",
				Usage:     "search the knowledge base and print the JSON answer",
				ArgsUsage: "QUERY...",
				Flags:     clientFlags(),
				Action:    AskAction,
			},
			{
				Name:      "preview",
				Usage:     "print an image as a data URL",
				ArgsUsage: "IMAGE",
				Action:    PreviewAction,
			},
			{
				Name:   "health",
				Usage:  "check both backends",
				Flags:  clientFlags(),
				Action: HealthAction,
			},
		},
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "images-url",
			Usage:   "image-search backend base URL",
			Value:   "http://127.0.0.1:5000",
			Sources: cli.EnvVars("VECDEMO_IMAGES_URL"),
		},
		&cli.StringFlag{
			Name:    "knowledge-url",
			Usage:   "knowledge-base backend base URL",
			Value:   "http://127.0.0.1:5001",
			Sources: cli.EnvVars("VECDEMO_KNOWLEDGE_URL"),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "backend request timeout",
			Value: 30 * time.Second,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "log SDK operations to stderr",
		},
	}
}
