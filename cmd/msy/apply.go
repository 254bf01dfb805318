package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mimsy-cms/mimsy/pkg/schemadoc"
)

// Snapshot header keys.
const (
	headerDescription = "Description"
	headerAppliedAt   = "Applied at"
	headerVersion     = "Version"
	headerChecksum    = "Checksum"
)

const snapshotExt = ".jsonc"

type applyOptions struct {
	description string
	clear       bool
	force       bool
}

func newApplyCmd(root *rootOptions) *cobra.Command {
	o := &applyOptions{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply and save schema changes with a description",
		Long: `Export the schema and save it as a snapshot under .mimsy/schemas.

Snapshots are named YYMMDD-<description>.jsonc and carry the description,
the time they were applied, the CLI version and a checksum of the
collections. When the schema has not changed since the latest snapshot
nothing is written unless --force is given.

The description is prompted for when not given with -d.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, root, o)
		},
	}

	cmd.Flags().StringVarP(&o.description, "description", "d", "", "description of the changes (prompted for if not provided)")
	cmd.Flags().BoolVar(&o.clear, "clear", true, "clear the registry before importing collections")
	cmd.Flags().BoolVar(&o.force, "force", false, "write a snapshot even if nothing changed")

	return cmd
}

func runApply(cmd *cobra.Command, root *rootOptions, o *applyOptions) error {
	out := cmd.OutOrStdout()

	description := strings.TrimSpace(o.description)
	if description == "" {
		d, err := promptDescription(cmd.InOrStdin(), out)
		if err != nil {
			return err
		}
		description = d
	}

	app, err := root.open(cmd, false)
	if err != nil {
		return err
	}
	defer root.close(app)

	if err := loadCollections(cmd, app, o.clear); err != nil {
		return err
	}

	doc := app.Export()
	sum, err := schemadoc.Checksum(doc)
	if err != nil {
		return err
	}

	dir := app.Config.SnapshotsPath()
	latest, latestSum, err := latestSnapshot(dir)
	if err != nil {
		return err
	}
	if latest != "" && latestSum == sum && !o.force {
		fmt.Fprintf(out, "No schema changes since %s, nothing applied (use --force to save anyway)\n", filepath.Base(latest))
		return nil
	}

	now := root.now()
	name := snapshotName(dir, now.Format("060102"), slugify(description))
	path := filepath.Join(dir, name)

	header := []string{
		headerDescription + ": " + description,
		headerAppliedAt + ": " + stamp(now),
		headerVersion + ": " + cliVersion(),
		headerChecksum + ": " + sum,
	}
	if err := schemadoc.WriteFile(path, doc, header); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	app.Logger.Debug().Str("path", path).Str("checksum", sum).Msg("snapshot written")

	fmt.Fprintln(out, "Schema applied successfully")
	fmt.Fprintf(out, "Saved to: %s\n", path)
	fmt.Fprintf(out, "Collections exported: %d\n", len(doc.Collections))
	fmt.Fprintf(out, "Description: %s\n", description)
	return nil
}

// promptDescription asks until a non-empty line is entered.
func promptDescription(in io.Reader, out io.Writer) (string, error) {
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "Please describe the changes being applied: ")
		line, err := reader.ReadString('\n')
		if d := strings.TrimSpace(line); d != "" {
			return d, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", errors.New("description is required")
			}
			return "", fmt.Errorf("read description: %w", err)
		}
		fmt.Fprintln(out, "Description is required")
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases text, joins runs of other characters with "-" and keeps
// at most 20 characters.
func slugify(text string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(text), "-")
	s = strings.Trim(s, "-")
	if len(s) > 20 {
		s = strings.TrimRight(s[:20], "-")
	}
	if s == "" {
		return "schema"
	}
	return s
}

// snapshotName returns "<date>-<slug>.jsonc", or with a "-2", "-3"... suffix
// when that file already exists.
func snapshotName(dir, date, slug string) string {
	base := date + "-" + slug
	name := base + snapshotExt
	for i := 2; exists(filepath.Join(dir, name)); i++ {
		name = base + "-" + strconv.Itoa(i) + snapshotExt
	}
	return name
}

// latestSnapshot returns the most recently applied snapshot in dir and its
// checksum. Snapshots written without a checksum header have it computed.
func latestSnapshot(dir string) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("read snapshots: %w", err)
	}

	var latest, latestAt, latestSum string
	var latestData []byte
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != snapshotExt {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("read snapshot: %w", err)
		}
		header := schemadoc.Header(data)
		// Applied at is UTC with a fixed width, so it sorts as a string.
		if at := header[headerAppliedAt]; latest == "" || at >= latestAt {
			latest, latestAt, latestSum, latestData = path, at, header[headerChecksum], data
		}
	}

	if latest == "" || latestSum != "" {
		return latest, latestSum, nil
	}

	doc, err := schemadoc.Parse(latestData)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", latest, err)
	}
	sum, err := schemadoc.Checksum(doc)
	if err != nil {
		return "", "", err
	}
	return latest, sum, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
