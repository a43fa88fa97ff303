package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/spf13/cobra"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin [image]",
	Short: "Check in a face photo or an embedding",
	Long: `Check in the best face of a photo, or a precomputed embedding given with
--embedding as comma separated values. The attendance is recorded unless the
person is still in their cooldown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheckin,
}

func init() {
	rootCmd.AddCommand(checkinCmd)

	checkinCmd.Flags().String("embedding", "", "Comma separated embedding instead of an image")
}

// parseEmbedding parses comma separated float values.
func parseEmbedding(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	out := make([]float32, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("embedding value %d: %w", i, err)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func runCheckin(cmd *cobra.Command, args []string) error {
	embeddingFlag := mustGetString(cmd, "embedding")
	if (embeddingFlag == "") == (len(args) == 0) {
		return fmt.Errorf("provide either an image or --embedding")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var result *attendance.CheckInResult
	if embeddingFlag != "" {
		embedding, err := parseEmbedding(embeddingFlag)
		if err != nil {
			return err
		}
		result, err = a.service.CheckIn(ctx, embedding)
		if err != nil {
			return err
		}
	} else {
		imageData, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
		result, err = a.service.CheckInImage(ctx, imageData)
		if err != nil {
			return err
		}
	}

	printCheckInResult(result, a.service.Location())
	return nil
}

func printCheckInResult(r *attendance.CheckInResult, loc *time.Location) {
	fmt.Println(r.Message())
	switch r.Outcome {
	case attendance.OutcomeCheckedIn:
		fmt.Printf("  Key:        %s\n", r.Identity.ExternalKey)
		fmt.Printf("  Time:       %s\n", time.UnixMilli(r.Record.Timestamp).In(loc).Format(time.DateTime))
		fmt.Printf("  Distance:   %.4f\n", r.Distance)
		fmt.Printf("  Confidence: %.1f%%\n", r.Confidence)
	case attendance.OutcomeNotRecognized:
		fmt.Printf("  Nearest:    id %d at distance %.4f\n", r.NearestID, r.Distance)
	}
}
