package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhtien379/Loto/internal/api/response"
	"github.com/minhtien379/Loto/internal/model"
)

var hostRoom string

func newHostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a room",
		Long: `Host commands act on the room in the credentials file unless --room is
given. "host create" writes that file.`,
	}

	cmd.PersistentFlags().StringVar(&hostRoom, "room", "", "Room code (default: the room in the credentials file)")

	cmd.AddCommand(newHostCreateCmd())
	cmd.AddCommand(newHostRestoreCmd())
	cmd.AddCommand(newHostSavedCmd())
	cmd.AddCommand(newHostDiscardCmd())
	cmd.AddCommand(newHostStateCmd())
	cmd.AddCommand(newHostDrawCmd())
	cmd.AddCommand(newHostResetCmd())
	cmd.AddCommand(newHostAutoCmd())
	cmd.AddCommand(newHostToastCmd())
	cmd.AddCommand(newHostVoiceCmd())
	cmd.AddCommand(newHostEmoteCmd())
	cmd.AddCommand(newHostShoutCmd())
	cmd.AddCommand(newHostCloseCmd())
	cmd.AddCommand(newHostEventsCmd())
	cmd.AddCommand(newHostConsoleCmd())

	return cmd
}

// hostTarget resolves the room and token and points the client at them
func hostTarget() (model.RoomCode, string, error) {
	var args []string
	if hostRoom != "" {
		args = []string{hostRoom}
	}
	code, token, err := cfg.ResolveHost(args)
	if err != nil {
		return "", "", err
	}
	client.SetToken(token)
	return code, token, nil
}

// createRoom creates a room and saves its credentials
func createRoom() (response.CreateRoomResponse, error) {
	result, err := client.CreateRoom()
	if err != nil {
		return result, err
	}
	creds := HostCredentials{RoomCode: model.RoomCode(result.RoomCode), HostToken: result.HostToken}
	if err := cfg.SaveCredentials(creds); err != nil {
		return result, fmt.Errorf("room %s created but credentials not saved: %w", result.RoomCode, err)
	}
	client.SetToken(result.HostToken)
	return result, nil
}

func newHostCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a room and save its host token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := createRoom()
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Reopen a room from its saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, token, err := hostTarget()
			if err != nil {
				return err
			}

			result, err := client.RestoreRoom(code, token)
			if err != nil {
				return err
			}
			if err := cfg.SaveCredentials(HostCredentials{RoomCode: code, HostToken: token}); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostSavedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved",
		Short: "Show a room's saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			result, err := client.SavedState(code)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete a room's saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			if err := client.DiscardSaved(code); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Discarded saved state of %s", code))
			return nil
		},
	}
}

func newHostStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the room's full state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			result, err := client.RoomState(code)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostDrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draw",
		Short: "Draw the next number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			result, err := client.Draw(code)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new round",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			result, err := client.Reset(code)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newHostAutoCmd() *cobra.Command {
	var interval time.Duration
	var stop bool

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Start or stop auto-draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			var result response.AutoDrawResponse

			if stop {
				result, err = client.StopAutoDraw(code)
			} else {
				result, err = client.StartAutoDraw(code, interval)
			}
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Time between draws")
	cmd.Flags().BoolVar(&stop, "stop", false, "Stop auto-draw")

	return cmd
}

func newHostToastCmd() *cobra.Command {
	var style string

	cmd := &cobra.Command{
		Use:   "toast <message>",
		Short: "Show a toast to every player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return hostAction("Toast sent", func(code model.RoomCode) error {
				return client.Toast(code, args[0], model.ToastStyle(style))
			})
		},
	}

	cmd.Flags().StringVar(&style, "style", string(model.ToastInfo), "Toast style: info, success, warning, error")

	return cmd
}

func newHostVoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "voice <mode>",
		Short: "Set the voice mode: real, google, system",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}
			if err := client.SetVoiceMode(code, model.VoiceMode(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Voice mode: " + args[0])
			return nil
		},
	}
}

func newHostEmoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emote <emoji>",
		Short: "Send an emoji reaction to the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return hostAction("Emote sent", func(code model.RoomCode) error {
				return client.Emote(code, args[0])
			})
		},
	}
}

func newHostShoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shout <text>",
		Short: "Send a short text to the room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return hostAction("Shout sent", func(code model.RoomCode) error {
				return client.Shout(code, args[0])
			})
		},
	}
}

func newHostCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the room; its saved state is kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, _, err := hostTarget()
			if err != nil {
				return err
			}

			if err := client.CloseRoom(code); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Closed room %s", code))
			return nil
		},
	}
}

// hostAction runs a host call that returns no body and prints done
func hostAction(done string, call func(model.RoomCode) error) error {
	code, _, err := hostTarget()
	if err != nil {
		return err
	}
	if err := call(code); err != nil {
		return err
	}

	out := NewOutput(cfg.Output)
	out.PrintMessage(done)
	return nil
}
