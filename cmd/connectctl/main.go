package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/matheus3301/connect/internal/lock"
	"github.com/matheus3301/connect/internal/profile"
	"github.com/matheus3301/connect/internal/push"
	"github.com/matheus3301/connect/internal/rpc"
	"github.com/matheus3301/connect/internal/tui/client"
	flag "github.com/spf13/pflag"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func main() {
	profileFlag := flag.StringP("profile", "p", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// profiles is answered from disk and needs no daemon.
	if args[0] == "profiles" {
		cmdProfiles()
		return
	}

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fail(err)
	}

	c, err := client.New(profile.SocketPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		cmdWatch(c, *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "push":
		cmdPush(ctx, c, args[1:], *jsonFlag)
	case "lifecycle":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: connectctl lifecycle <resumed|paused> <screen>")
			os.Exit(1)
		}
		cmdLifecycle(ctx, c, args[1], args[2])
	case "ipm":
		cmdIpm(ctx, c, *jsonFlag)
	case "action":
		if _, err := c.Ipm.HandleAction(ctx, &emptypb.Empty{}); err != nil {
			fail(err)
		}
		fmt.Println("Action recorded.")
	case "dismiss":
		reason := "navigate_back"
		if len(args) >= 2 {
			reason = args[1]
		}
		cmdDismiss(ctx, c, reason)
	case "notifications":
		sub := "list"
		if len(args) >= 2 {
			sub = args[1]
		}
		cmdNotifications(ctx, c, sub, args[2:], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: connectctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                         Show daemon and IPM status")
	fmt.Fprintln(os.Stderr, "  push key=value...              Deliver a push payload")
	fmt.Fprintln(os.Stderr, "  lifecycle <resumed|paused> <screen>")
	fmt.Fprintln(os.Stderr, "                                 Report a host screen event")
	fmt.Fprintln(os.Stderr, "  ipm                            Show the pending IPM")
	fmt.Fprintln(os.Stderr, "  action                         Press the IPM action button")
	fmt.Fprintln(os.Stderr, "  dismiss [reason]               Dismiss the IPM (navigate_back, tap_outside, slide_down)")
	fmt.Fprintln(os.Stderr, "  notifications list [limit]     List posted system notifications")
	fmt.Fprintln(os.Stderr, "  notifications <on|off>         Grant or revoke notification permission")
	fmt.Fprintln(os.Stderr, "  watch                          Stream navigation events")
	fmt.Fprintln(os.Stderr, "  profiles                       List known profiles")
}

func cmdStatus(ctx context.Context, c *client.Client, jsonOut bool) {
	resp, err := c.Ipm.GetStatus(ctx, &emptypb.Empty{})
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	f := resp.GetFields()
	fmt.Printf("Profile:       %s\n", rpc.String(resp, "profile"))
	fmt.Printf("State:         %s\n", rpc.String(resp, "state"))
	if id := rpc.String(resp, "instance_id"); id != "" {
		fmt.Printf("Instance:      %s\n", id)
	}
	fmt.Printf("Foreground:    %v (%s)\n", f["foreground"].GetBoolValue(), rpc.String(resp, "screen"))
	fmt.Printf("Notifications: %v\n", f["notifications_enabled"].GetBoolValue())
	fmt.Printf("Pending jobs:  %d\n", int(f["pending_jobs"].GetNumberValue()))
	fmt.Printf("Queued events: %d (%d failed)\n", int(f["queued_events"].GetNumberValue()), int(f["failed_events"].GetNumberValue()))
	fmt.Printf("Uptime:        %dms\n", int64(f["uptime_ms"].GetNumberValue()))
}

func cmdPush(ctx context.Context, c *client.Client, pairs []string, jsonOut bool) {
	data, err := push.ParsePairs(pairs)
	if err != nil {
		fail(err)
	}
	resp, err := c.Ipm.DeliverPush(ctx, rpc.StructFromStrings(data))
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	fmt.Printf("Delivered as %s.\n", rpc.String(resp, "kind"))
}

func cmdLifecycle(ctx context.Context, c *client.Client, event, screen string) {
	_, err := c.Ipm.ReportLifecycle(ctx, rpc.StructFromStrings(map[string]string{
		"event":  event,
		"screen": screen,
	}))
	if err != nil {
		fail(err)
	}
	fmt.Printf("Reported %s on %s.\n", strings.ToUpper(event), screen)
}

func cmdIpm(ctx context.Context, c *client.Client, jsonOut bool) {
	resp, err := c.Ipm.GetIpm(ctx, &emptypb.Empty{})
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(resp)
		return
	}
	if len(resp.GetFields()) == 0 {
		fmt.Println("No IPM pending.")
		return
	}
	keys := make([]string, 0, len(resp.GetFields()))
	for k := range resp.GetFields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rpc.String(resp, k)
		if k == rpc.AvatarField {
			v = fmt.Sprintf("<%d bytes base64>", len(v))
		}
		fmt.Printf("%-12s %s\n", k, v)
	}
}

func cmdDismiss(ctx context.Context, c *client.Client, reason string) {
	_, err := c.Ipm.HandleDismiss(ctx, rpc.StructFromStrings(map[string]string{"reason": reason}))
	if err != nil {
		fail(err)
	}
	fmt.Println("Dismiss recorded.")
}

func cmdNotifications(ctx context.Context, c *client.Client, sub string, rest []string, jsonOut bool) {
	switch sub {
	case "list":
		limit := 20
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n <= 0 {
				fail(fmt.Errorf("invalid limit %q", rest[0]))
			}
			limit = n
		}
		resp, err := c.Ipm.ListNotifications(ctx, wrapperspb.Int32(int32(limit)))
		if err != nil {
			fail(err)
		}
		if jsonOut {
			outputJSON(resp)
			return
		}
		if len(resp.GetValues()) == 0 {
			fmt.Println("No notifications posted.")
			return
		}
		for _, v := range resp.GetValues() {
			n := v.GetStructValue()
			posted := time.UnixMilli(int64(n.GetFields()["posted_at_unix_ms"].GetNumberValue()))
			fmt.Printf("%s  %-11d %-24s %s\n",
				posted.Format(time.DateTime),
				int64(n.GetFields()["notification_id"].GetNumberValue()),
				rpc.String(n, "title"),
				rpc.String(n, "body"))
		}
	case "on", "off":
		if _, err := c.Ipm.SetNotificationsEnabled(ctx, wrapperspb.Bool(sub == "on")); err != nil {
			fail(err)
		}
		fmt.Printf("Notifications %s.\n", sub)
	default:
		fmt.Fprintf(os.Stderr, "unknown notifications subcommand: %s\n", sub)
		os.Exit(1)
	}
}

func cmdWatch(c *client.Client, jsonOut bool) {
	stream, err := c.Ipm.WatchNavigation(context.Background(), &emptypb.Empty{})
	if err != nil {
		fail(err)
	}
	for {
		evt, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fail(err)
		}
		if jsonOut {
			outputJSON(evt)
			continue
		}
		at := time.UnixMilli(int64(evt.GetFields()["occurred_at_unix_ms"].GetNumberValue()))
		line := fmt.Sprintf("%s  %-24s %s", at.Format(time.TimeOnly), rpc.String(evt, "kind"), rpc.String(evt, "instance_id"))
		if to := rpc.String(evt, "to"); to != "" {
			line += fmt.Sprintf(" (%s -> %s)", rpc.String(evt, "from"), to)
		}
		fmt.Println(line)
	}
}

func cmdProfiles() {
	names, err := profile.List()
	if err != nil {
		fail(err)
	}
	if len(names) == 0 {
		fmt.Println("No profiles found.")
		return
	}
	for _, name := range names {
		state := "stopped"
		if info, held, err := lock.Probe(profile.Dir(name)); err == nil && held {
			state = fmt.Sprintf("running, pid %d", info.PID)
		}
		fmt.Printf("%-20s %s (%s)\n", name, profile.Dir(name), state)
	}
}

func outputJSON(m proto.Message) {
	b, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
		return
	}
	fmt.Println(string(b))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
