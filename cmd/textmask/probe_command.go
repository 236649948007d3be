package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"textmask/internal/config"
	"textmask/internal/media/ffprobe"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <path>",
		Short: "Inspect a media file's streams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}

			result, err := ffprobe.Inspect(cmd.Context(), cfg.FFmpeg.FFprobeBinary, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File: %s\n", path)
			fmt.Fprintf(out, "Container: %s\n", result.Format.FormatName)
			if duration := result.DurationSeconds(); duration > 0 {
				fmt.Fprintf(out, "Duration: %.2fs\n", duration)
			}
			fmt.Fprintf(out, "Streams: %d video, %d audio\n\n",
				result.VideoStreamCount(), result.AudioStreamCount())

			rows := make([][]string, 0, len(result.Streams))
			for _, stream := range result.Streams {
				rows = append(rows, []string{
					strconv.Itoa(stream.Index),
					stream.CodecType,
					stream.CodecName,
					streamDetail(stream),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func streamDetail(stream ffprobe.Stream) string {
	switch strings.ToLower(stream.CodecType) {
	case "video":
		detail := fmt.Sprintf("%dx%d", stream.Width, stream.Height)
		if rate := stream.FrameRate(); rate > 0 {
			detail += fmt.Sprintf(" @ %.3g fps", rate)
		}
		return detail
	case "audio":
		parts := []string{}
		if stream.SampleRate != "" {
			parts = append(parts, stream.SampleRate+" Hz")
		}
		if stream.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%d ch", stream.Channels))
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
