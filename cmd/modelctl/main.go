// Copyright 2016-2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Command modelctl is a command-line client for the model server.
// Every command prints the server's response body as JSON.  Request
// bodies are given as a JSON argument, "-" to read standard input, or
// "@file" to read a file:
//
//     modelctl service create digits '{"mllib":"memory"}'
//     modelctl predict @request.json
//     modelctl train status --service digits
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/diffeo/go-modelserve/restclient"
	"github.com/diffeo/go-modelserve/restdata"
	"github.com/diffeo/go-modelserve/serving"
)

// tool holds the state shared by all commands.
type tool struct {
	Client  *restclient.Client
	Timeout time.Duration
	Stdin   io.Reader
	Out     io.Writer
}

// ctx returns the context for one request.
func (t *tool) ctx() (context.Context, context.CancelFunc) {
	if t.Timeout > 0 {
		return context.WithTimeout(context.Background(), t.Timeout)
	}
	return context.WithCancel(context.Background())
}

// print writes a response as indented JSON.
func (t *tool) print(v interface{}) error {
	var compact, indented bytes.Buffer
	err := restdata.Encode(restdata.JSONMediaType, &compact, v)
	if err == nil {
		err = json.Indent(&indented, compact.Bytes(), "", "  ")
	}
	if err == nil {
		indented.WriteByte('\n')
		_, err = indented.WriteTo(t.Out)
	}
	return err
}

// arg returns a required positional argument.
func arg(c *cli.Context, i int, what string) (string, error) {
	if c.NArg() <= i {
		return "", cli.NewExitError("missing "+what, 2)
	}
	return c.Args().Get(i), nil
}

// payload reads a request body named by a positional argument.
func (t *tool) payload(c *cli.Context, i int) (serving.Payload, error) {
	source, err := arg(c, i, "request body")
	if err != nil {
		return nil, err
	}
	var r io.Reader
	switch {
	case source == "-":
		r = t.Stdin
	case strings.HasPrefix(source, "@"):
		f, err := os.Open(source[1:])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	default:
		r = strings.NewReader(source)
	}
	var p serving.Payload
	err = restdata.Decode(restdata.JSONMediaType, r, &p)
	if err != nil {
		return nil, cli.NewExitError("invalid request body: "+err.Error(), 2)
	}
	return p, nil
}

// jobQuery builds a training job query from command flags.
func jobQuery(c *cli.Context) (serving.JobQuery, error) {
	q := serving.JobQuery{
		Service: c.String("service"),
		Job:     c.Int("job"),
	}
	if q.Service == "" {
		return q, cli.NewExitError("--service is required", 2)
	}
	return q, nil
}

// newApp builds the command-line application around t.  The client
// is created before any command runs.
func newApp(t *tool) *cli.App {
	app := cli.NewApp()
	app.Name = "modelctl"
	app.Usage = "control a model server"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "url",
			Value:  "http://localhost:8080/",
			Usage:  "base URL of the model server",
			EnvVar: "MODELSERVE_URL",
		},
		cli.BoolFlag{
			Name:  "cbor",
			Usage: "talk CBOR to the server instead of JSON",
		},
		cli.DurationFlag{
			Name:  "timeout",
			Value: time.Minute,
			Usage: "give up on a request after this long (0 waits forever)",
		},
	}
	app.Before = func(c *cli.Context) error {
		config := restclient.Config{MediaType: restdata.JSONMediaType}
		if c.Bool("cbor") {
			config.MediaType = restdata.CBORMediaType
		}
		t.Timeout = c.Duration("timeout")
		client, err := restclient.NewWithConfig(c.String("url"), config)
		if err != nil {
			return cli.NewExitError("cannot reach server: "+err.Error(), 1)
		}
		t.Client = client
		return nil
	}
	app.Commands = []cli.Command{
		t.infoCommand(),
		t.serviceCommand(),
		t.predictCommand(),
		t.chainCommand(),
		t.trainCommand(),
		t.resourceCommand(),
		t.streamCommand(),
	}
	return app
}

func main() {
	t := &tool{Stdin: os.Stdin, Out: os.Stdout}
	app := newApp(t)
	app.Writer = os.Stdout
	if err := app.Run(os.Args); err != nil {
		if _, isExit := err.(cli.ExitCoder); !isExit {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cli.HandleExitCoder(err)
	}
}
