package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"trafficaz/internal/ipc"
)

const usage = `usage: trafficaz-ctl [-s socket] <command> [text]

commands:
  start          turn voice activation on
  stop           turn voice activation off
  wake           wake the assistant without the wake phrase
  status         print state and session
  hear <text>    inject a final transcript
  say <text>     speak text with the current voice
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 30*time.Second, "Request timeout")
	cli.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	req := ipc.Request{Cmd: args[0], Text: strings.Join(args[1:], " ")}
	switch req.Cmd {
	case "start", "stop", "wake", "status":
	case "hear", "say":
		if req.Text == "" {
			fmt.Fprintf(os.Stderr, "%s needs text\n", req.Cmd)
			os.Exit(2)
		}
	default:
		cli.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	reply, err := ipc.Send(ctx, *socket, req)
	if err != nil {
		fmt.Println("trafficaz not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}
	fmt.Printf("state=%s session=%d\n", reply.State, reply.Session)
}
