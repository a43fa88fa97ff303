package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <external-key> <given-name> <family-name> <image>",
	Short: "Enroll a person from a face photo",
	Long: `Enroll a person from a photo of their face.
The largest confidently detected face is used; its crop is stored next to the
other enrolled faces.`,
	Args: cobra.ExactArgs(4),
	RunE: runEnroll,
}

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <directory>",
	Short: "Enroll every photo of a directory",
	Long: `Enroll every image of a directory. File names must have the form
<external-key>_<given-name>_<family-name>.<ext>, for example
12345678_Jana_Novakova.jpg. Already enrolled keys are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().Int("concurrency", constants.DefaultConcurrency, "Number of images processed in parallel")
	enrollDirCmd.Flags().Bool("dry-run", false, "Only list the people that would be enrolled")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	imageData, err := os.ReadFile(args[3])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	identity, err := a.service.Enroll(ctx, attendance.EnrollRequest{
		ExternalKey: args[0],
		GivenName:   args[1],
		FamilyName:  args[2],
	}, imageData)
	if err != nil {
		return err
	}

	fmt.Printf("Enrolled %s %s (id %d, key %s)\n", identity.GivenName, identity.FamilyName, identity.ID, identity.ExternalKey)
	fmt.Printf("Face photo: %s\n", identity.FacePhotoPath)
	return nil
}

// enrollFile is one image of an enroll-dir run.
type enrollFile struct {
	path string
	req  attendance.EnrollRequest
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true}

// parseEnrollFileName splits <key>_<given>_<family>.<ext>. Dashes in names become spaces.
func parseEnrollFileName(name string) (attendance.EnrollRequest, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if !imageExtensions[ext] {
		return attendance.EnrollRequest{}, false
	}
	parts := strings.SplitN(strings.TrimSuffix(name, filepath.Ext(name)), "_", 3)
	if len(parts) != 3 {
		return attendance.EnrollRequest{}, false
	}
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return attendance.EnrollRequest{}, false
		}
	}
	return attendance.EnrollRequest{
		ExternalKey: parts[0],
		GivenName:   strings.ReplaceAll(parts[1], "-", " "),
		FamilyName:  strings.ReplaceAll(parts[2], "-", " "),
	}, true
}

// collectEnrollFiles lists the images of dir with a parseable name. Other files are returned as skipped.
func collectEnrollFiles(dir string) ([]enrollFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var files []enrollFile
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		req, ok := parseEnrollFileName(e.Name())
		if !ok {
			skipped = append(skipped, e.Name())
			continue
		}
		files = append(files, enrollFile{path: filepath.Join(dir, e.Name()), req: req})
	}
	return files, skipped, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	files, skipped, err := collectEnrollFiles(args[0])
	if err != nil {
		return err
	}
	for _, name := range skipped {
		fmt.Printf("Skipping %s: name does not match <key>_<given>_<family>.<ext>\n", name)
	}
	if len(files) == 0 {
		fmt.Println("No images to enroll")
		return nil
	}

	if mustGetBool(cmd, "dry-run") {
		for _, f := range files {
			fmt.Printf("%-16s %s %s\n", f.req.ExternalKey, f.req.GivenName, f.req.FamilyName)
		}
		fmt.Printf("\n%d people would be enrolled\n", len(files))
		return nil
	}

	ctx := context.Background()
	a, err := newApp(ctx, cmd, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled, duplicates int
	var failures []string
	var mu sync.Mutex

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, f := range files {
		wg.Add(1)
		go func(f enrollFile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			imageData, err := os.ReadFile(f.path)
			if err == nil {
				_, err = a.service.Enroll(ctx, f.req, imageData)
			}

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				enrolled++
			case errors.Is(err, database.ErrDuplicateKey):
				duplicates++
			default:
				failures = append(failures, fmt.Sprintf("%s: %v", filepath.Base(f.path), err))
			}
		}(f)
	}

	wg.Wait()
	fmt.Println()

	for _, failure := range failures {
		fmt.Printf("Failed %s\n", failure)
	}
	total, _ := a.service.CountPeople(ctx)
	fmt.Printf("\nCompleted: %d enrolled, %d already enrolled, %d errors\n", enrolled, duplicates, len(failures))
	fmt.Printf("Total people enrolled: %d\n", total)
	return nil
}
