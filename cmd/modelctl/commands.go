// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"github.com/urfave/cli"

	"github.com/diffeo/go-modelserve/serving"
)

func (t *tool) infoCommand() cli.Command {
	return cli.Command{
		Name:  "info",
		Usage: "show the server version and services",
		Flags: []cli.Flag{
			cli.BoolFlag{
				Name:  "status",
				Usage: "include model status",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := t.ctx()
			defer cancel()
			info, err := t.Client.Info(ctx, serving.InfoOptions{Status: c.Bool("status")})
			if err != nil {
				return err
			}
			return t.print(info)
		},
	}
}

func (t *tool) serviceCommand() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "manage services",
		Subcommands: []cli.Command{
			{
				Name:      "get",
				Usage:     "describe a service",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					cli.BoolTFlag{
						Name:  "status",
						Usage: "include model status and training job",
					},
					cli.BoolFlag{
						Name:  "labels",
						Usage: "include model labels",
					},
				},
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0, "service name")
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					info, err := t.Client.Service(ctx, name, serving.StatusOptions{
						Status: c.BoolT("status"),
						Labels: c.Bool("labels"),
					})
					if err != nil {
						return err
					}
					if info == nil {
						return cli.NewExitError("no such service "+name, 3)
					}
					return t.print(info)
				},
			},
			{
				Name:      "create",
				Usage:     "create a service",
				ArgsUsage: "NAME BODY",
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0, "service name")
					if err != nil {
						return err
					}
					payload, err := t.payload(c, 1)
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					info, err := t.Client.CreateService(ctx, name, payload)
					if err != nil {
						return err
					}
					return t.print(info)
				},
			},
			{
				Name:      "delete",
				Usage:     "delete a service",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "clear",
						Usage: "what to remove: mem, lib, index, full or dir",
					},
				},
				Action: func(c *cli.Context) error {
					name, err := arg(c, 0, "service name")
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					return t.Client.DeleteService(ctx, name, serving.DeleteOptions{
						Clear: serving.ClearMode(c.String("clear")),
					})
				},
			},
		},
	}
}

func (t *tool) predictCommand() cli.Command {
	return cli.Command{
		Name:      "predict",
		Usage:     "run a prediction",
		ArgsUsage: "BODY",
		Action: func(c *cli.Context) error {
			payload, err := t.payload(c, 0)
			if err != nil {
				return err
			}
			ctx, cancel := t.ctx()
			defer cancel()
			result, err := t.Client.Predict(ctx, payload)
			if err != nil {
				return err
			}
			return t.print(result)
		},
	}
}

func (t *tool) chainCommand() cli.Command {
	return cli.Command{
		Name:      "chain",
		Usage:     "run a chain of predictions",
		ArgsUsage: "NAME BODY",
		Action: func(c *cli.Context) error {
			name, err := arg(c, 0, "chain name")
			if err != nil {
				return err
			}
			payload, err := t.payload(c, 1)
			if err != nil {
				return err
			}
			ctx, cancel := t.ctx()
			defer cancel()
			result, err := t.Client.Chain(ctx, name, payload)
			if err != nil {
				return err
			}
			return t.print(result)
		},
	}
}

var jobFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "service",
		Usage: "service the job runs on",
	},
	cli.IntFlag{
		Name:  "job",
		Usage: "job number (default any)",
	},
}

func (t *tool) trainCommand() cli.Command {
	return cli.Command{
		Name:  "train",
		Usage: "manage training jobs",
		Subcommands: []cli.Command{
			{
				Name:      "start",
				Usage:     "start a training job",
				ArgsUsage: "BODY",
				Action: func(c *cli.Context) error {
					payload, err := t.payload(c, 0)
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					info, err := t.Client.Train(ctx, payload)
					if err != nil {
						return err
					}
					return t.print(info)
				},
			},
			{
				Name:  "status",
				Usage: "show the current or last training job",
				Flags: jobFlags,
				Action: func(c *cli.Context) error {
					q, err := jobQuery(c)
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					info, err := t.Client.TrainStatus(ctx, q)
					if err != nil {
						return err
					}
					return t.print(info)
				},
			},
			{
				Name:  "stop",
				Usage: "cancel and forget a training job",
				Flags: jobFlags,
				Action: func(c *cli.Context) error {
					q, err := jobQuery(c)
					if err != nil {
						return err
					}
					ctx, cancel := t.ctx()
					defer cancel()
					info, err := t.Client.DeleteTrain(ctx, q)
					if err != nil {
						return err
					}
					return t.print(info)
				},
			},
		},
	}
}

// entityCommands builds the create, get and delete subcommands shared
// by resources and streams.
func (t *tool) entityCommands(
	kind string,
	create func(c *cli.Context, name string, payload serving.Payload) (interface{}, error),
	get func(c *cli.Context, name string) (interface{}, error),
	remove func(c *cli.Context, name string) error,
) []cli.Command {
	return []cli.Command{
		{
			Name:      "create",
			Usage:     "create a " + kind,
			ArgsUsage: "NAME BODY",
			Action: func(c *cli.Context) error {
				name, err := arg(c, 0, kind+" name")
				if err != nil {
					return err
				}
				payload, err := t.payload(c, 1)
				if err != nil {
					return err
				}
				info, err := create(c, name, payload)
				if err != nil {
					return err
				}
				return t.print(info)
			},
		},
		{
			Name:      "get",
			Usage:     "describe a " + kind,
			ArgsUsage: "NAME",
			Action: func(c *cli.Context) error {
				name, err := arg(c, 0, kind+" name")
				if err != nil {
					return err
				}
				info, err := get(c, name)
				if err != nil {
					return err
				}
				return t.print(info)
			},
		},
		{
			Name:      "delete",
			Usage:     "delete a " + kind,
			ArgsUsage: "NAME",
			Action: func(c *cli.Context) error {
				name, err := arg(c, 0, kind+" name")
				if err != nil {
					return err
				}
				return remove(c, name)
			},
		},
	}
}

func (t *tool) resourceCommand() cli.Command {
	return cli.Command{
		Name:  "resource",
		Usage: "manage resources",
		Subcommands: t.entityCommands("resource",
			func(c *cli.Context, name string, payload serving.Payload) (interface{}, error) {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.CreateResource(ctx, name, payload)
			},
			func(c *cli.Context, name string) (interface{}, error) {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.Resource(ctx, name)
			},
			func(c *cli.Context, name string) error {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.DeleteResource(ctx, name)
			},
		),
	}
}

func (t *tool) streamCommand() cli.Command {
	return cli.Command{
		Name:  "stream",
		Usage: "manage streams",
		Subcommands: t.entityCommands("stream",
			func(c *cli.Context, name string, payload serving.Payload) (interface{}, error) {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.CreateStream(ctx, name, payload)
			},
			func(c *cli.Context, name string) (interface{}, error) {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.Stream(ctx, name)
			},
			func(c *cli.Context, name string) error {
				ctx, cancel := t.ctx()
				defer cancel()
				return t.Client.DeleteStream(ctx, name)
			},
		),
	}
}
