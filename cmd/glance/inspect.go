package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/glance/internal/gguf"
)

var inspectKeys = []string{
	"general.name",
	"general.architecture",
	"general.file_type",
	"tokenizer.ggml.model",
	"tokenizer.ggml.bos_token_id",
	"tokenizer.ggml.eos_token_id",
}

func inspectCmd() *cli.Command {
	var (
		showKV   bool
		showChat bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the metadata of a local GGUF file",
		ArgsUsage: "<path.gguf>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "kv",
				Usage:       "show all scalar metadata key/values",
				Destination: &showKV,
			},
			&cli.BoolFlag{
				Name:        "chat-template",
				Usage:       "print the embedded chat template",
				Destination: &showChat,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				path = fileConfig.GGUF
			}
			if path == "" {
				return fmt.Errorf("usage: glance inspect [--kv] <path.gguf>")
			}
			md, err := gguf.ReadMetadata(path)
			if err != nil {
				return err
			}
			printMetadata(os.Stdout, md, showKV, showChat)
			return nil
		},
	}
}

func printMetadata(w io.Writer, md *gguf.Metadata, showKV, showChat bool) {
	fmt.Fprintf(w, "file:      %s\n", md.Path)
	fmt.Fprintf(w, "gguf:      v%d tensors=%d kv=%d\n", md.Header.Version, md.Header.TensorCount, md.Header.KVCount)

	keys := inspectKeys
	if showKV {
		keys = make([]string, 0, len(md.KV))
		for k, v := range md.KV {
			if v.Type != gguf.TypeArray && k != "tokenizer.chat_template" {
				keys = append(keys, k)
			}
		}
		slices.Sort(keys)
	}
	for _, k := range keys {
		if v, ok := md.KV[k]; ok {
			fmt.Fprintf(w, "  %s (%s) = %v\n", k, v.Type, v.Value)
		}
	}

	tokens, _ := gguf.GetArray[string](md.KV, "tokenizer.ggml.tokens")
	control := md.ControlTokens()
	fmt.Fprintf(w, "vocab:     %d tokens, %d control\n", len(tokens), len(control))
	if bos := md.BOSToken(); bos != "" {
		fmt.Fprintf(w, "bos:       %q\n", bos)
	}

	tpl := md.ChatTemplate()
	switch {
	case tpl == "":
		fmt.Fprintln(w, "template:  none")
	case showChat:
		fmt.Fprintln(w, "template:")
		fmt.Fprintln(w, tpl)
	default:
		first, _, _ := strings.Cut(tpl, "\n")
		fmt.Fprintf(w, "template:  %d bytes, starts %q\n", len(tpl), first)
	}
}
