package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Watch command flags
var (
	watchAddr   string
	watchFollow bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <thread-id>",
	Short: "Stream run updates of a thread",
	Long: `Connect to the thread stream of a running server and print run updates.
Exits after the first run finishes unless --follow is set.

Examples:
  unfiltered watch thread_abc
  unfiltered watch thread_abc --addr ws://localhost:8080 --follow`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&watchAddr, "addr", "ws://localhost:8080", "server address")
	watchCmd.Flags().BoolVarP(&watchFollow, "follow", "f", false, "keep streaming after a run finishes")
}

// streamURL builds the stream endpoint of a thread.
func streamURL(addr, threadID string) (string, error) {
	u, err := url.Parse(strings.TrimSuffix(addr, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported address scheme %q", u.Scheme)
	}
	base := u.EscapedPath()
	u.Path += "/v1/threads/" + threadID + "/stream"
	u.RawPath = base + "/v1/threads/" + url.PathEscape(threadID) + "/stream"
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	target, err := streamURL(watchAddr, args[0])
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-cmd.Context().Done()
		conn.Close()
	}()

	return readUpdates(conn, cmd.OutOrStdout(), watchFollow)
}

// readUpdates prints stream messages until the connection closes or, unless
// follow is set, a run finishes.
func readUpdates(conn *websocket.Conn, out io.Writer, follow bool) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Fprintf(out, "unreadable message: %s\n", data)
			continue
		}
		msgType, _ := msg["type"].(string)
		formatted, _ := json.MarshalIndent(msg, "", "  ")
		fmt.Fprintf(out, "[%s]\n%s\n", msgType, formatted)

		if !follow && (msgType == "run_done" || msgType == "run_failed") {
			return nil
		}
	}
}
