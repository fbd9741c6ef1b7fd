package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/phase"
	"github.com/vampirenirmal/dramaturg/internal/render"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

var printScript bool

var runCmd = &cobra.Command{
	Use:   "run [storyline]",
	Short: "Generate a whole script from a storyline",
	Long: `Run every stage in order: title, characters, scenes, places, then the
dialogue of each scene. Stages already present in a resumed session are
skipped, so a run that stopped early can be picked up with --session.

The session state and the rendered script are written to the output
directory whether or not every stage succeeded.

Examples:
  dramaturg run "A lighthouse keeper rescues a sailor who is not what he seems."
  dramaturg run --session sessions/2025-07-16_1530_82f06b15
  dramaturg run --mock --print "Two rival bakers share a kitchen."`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addSessionFlags(runCmd)
	runCmd.Flags().BoolVar(&printScript, "print", false, "print the rendered script when done")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	line, err := storyline(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	sess, err := a.openSession(ctx, sessionDir, line)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	printHeader(w, "Storyline")
	fmt.Fprintln(w, textStyle.Render(sess.Story.Storyline))

	complete := a.pipeline(ctx, w, sess)

	dir, err := a.export(ctx, sess)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	if complete {
		fmt.Fprintln(w, successStyle.Render("Script written to "+dir))
	} else {
		fmt.Fprintln(w, warnStyle.Render("Partial script written to "+dir))
		fmt.Fprintln(w, mutedStyle.Render("Resume with: dramaturg run --session "+dir))
	}
	if printScript {
		fmt.Fprintln(w)
		if err := render.Write(w, sess.Story); err != nil {
			return err
		}
	}
	return nil
}

// pipeline runs the missing stages and reports whether the script is
// complete. A failed title, characters or scenes stage ends the run since
// every later prompt builds on it. Places and dialogue only stop on a
// timeout; other failures leave a gap and move on.
func (a *app) pipeline(ctx context.Context, w io.Writer, sess *story.Session) bool {
	s := sess.Story

	if s.Title == "" {
		out := a.generator.Title(ctx, sess)
		printOutcome(w, out)
		if !out.OK() {
			return false
		}
	}
	printBlock(w, "Title", s.Title)

	if len(s.Characters) == 0 {
		out := a.generator.Characters(ctx, sess)
		printOutcome(w, out)
		if !out.OK() {
			return false
		}
	}
	printBlock(w, "Characters", s.CharactersText())

	if len(s.Scenes) == 0 {
		out := a.generator.Scenes(ctx, sess)
		printOutcome(w, out)
		if !out.OK() {
			return false
		}
	}
	printBlock(w, "Scenes", sceneList(s))

	if missing := phase.MissingPlaces(s); len(missing) > 0 {
		report := a.generator.PlacesNamed(ctx, sess, missing)
		printPlaces(w, report, a.cfg.Limits.MaxFailures)
		if report.Stop == core.OutcomeTimeout {
			return false
		}
	}

	for _, index := range s.MissingDialogue() {
		out := a.generator.Dialogue(ctx, sess, index)
		printOutcome(w, out)
		if out.Kind == core.OutcomeTimeout {
			return false
		}
	}

	return s.DialogueComplete() && len(phase.MissingPlaces(s)) == 0
}

func sceneList(s *story.StoryState) string {
	lines := make([]string, 0, len(s.Scenes))
	for i, sc := range s.Scenes {
		lines = append(lines, fmt.Sprintf("%d. %s  %s", i+1, sc.Location(), sc.Beat))
	}
	return strings.Join(lines, "\n")
}

func printPlaces(w io.Writer, r phase.PlacesReport, maxFailures int) {
	for _, name := range r.Generated {
		fmt.Fprintln(w, successStyle.Render("✓ place "+name))
	}
	for _, name := range r.Rejected {
		fmt.Fprintln(w, outcomeMessage(core.StagePlace, core.OutcomeSafetyRejected, 0)+mutedStyle.Render(" ("+name+")"))
	}
	if !r.Complete() {
		fmt.Fprintln(w, outcomeMessage(core.StagePlace, r.Stop, maxFailures))
		fmt.Fprintln(w, mutedStyle.Render("Still missing: "+strings.Join(r.Remaining, ", ")))
	}
}
