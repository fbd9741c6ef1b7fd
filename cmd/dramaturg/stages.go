package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vampirenirmal/dramaturg/internal/core"
	"github.com/vampirenirmal/dramaturg/internal/render"
	"github.com/vampirenirmal/dramaturg/internal/story"
)

var (
	sceneIndex       int
	continueDialogue bool
)

var titleCmd = &cobra.Command{
	Use:   "title [storyline]",
	Short: "Generate (or regenerate) the title",
	RunE: stageRunner(func(ctx context.Context, w io.Writer, a *app, sess *story.Session) error {
		out := a.generator.Title(ctx, sess)
		printOutcome(w, out)
		if out.OK() {
			printBlock(w, "Title", sess.Story.Title)
		}
		return nil
	}),
}

var charactersCmd = &cobra.Command{
	Use:   "characters [storyline]",
	Short: "Generate (or regenerate) the characters",
	RunE: stageRunner(func(ctx context.Context, w io.Writer, a *app, sess *story.Session) error {
		out := a.generator.Characters(ctx, sess)
		printOutcome(w, out)
		if out.OK() {
			printBlock(w, "Characters", sess.Story.CharactersText())
		}
		return nil
	}),
}

var scenesCmd = &cobra.Command{
	Use:   "scenes [storyline]",
	Short: "Generate (or regenerate) the scene outline",
	Long: `Generate the scene outline from the storyline and the characters of the
session. Run characters first; an outline without a cast still works but
the scenes will invent their own people.`,
	RunE: stageRunner(func(ctx context.Context, w io.Writer, a *app, sess *story.Session) error {
		out := a.generator.Scenes(ctx, sess)
		printOutcome(w, out)
		if out.OK() {
			printBlock(w, "Scenes", sceneList(sess.Story))
		}
		return nil
	}),
}

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Generate a description for every place of the outline",
	RunE: stageRunner(func(ctx context.Context, w io.Writer, a *app, sess *story.Session) error {
		if len(sess.Story.Scenes) == 0 {
			return fmt.Errorf("session has no scenes yet; run scenes first")
		}
		printPlaces(w, a.generator.Places(ctx, sess), a.cfg.Limits.MaxFailures)
		return nil
	}),
}

var dialogueCmd = &cobra.Command{
	Use:   "dialogue",
	Short: "Generate the dialogue of one scene",
	Long: `Generate the dialogue of a scene, numbered from 1. With --continue the
existing dialogue of the scene is extended instead of replaced.

Examples:
  dramaturg dialogue --session sessions/2025-07-16_1530_82f06b15 --scene 2
  dramaturg dialogue --session sessions/2025-07-16_1530_82f06b15 --scene 2 --continue`,
	RunE: stageRunner(func(ctx context.Context, w io.Writer, a *app, sess *story.Session) error {
		if _, ok := sess.Story.Scene(sceneIndex); !ok {
			return fmt.Errorf("scene %d out of range (session has %d scenes)", sceneIndex, len(sess.Story.Scenes))
		}

		var out core.Outcome[string]
		if continueDialogue {
			out = a.generator.ContinueDialogue(ctx, sess, sceneIndex)
		} else {
			out = a.generator.Dialogue(ctx, sess, sceneIndex)
		}
		printOutcome(w, out)
		if out.OK() {
			printBlock(w, fmt.Sprintf("Scene %d", sceneIndex), sess.Story.Dialogue[sceneIndex])
		}
		return nil
	}),
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the script of a saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if sessionDir == "" {
			return fmt.Errorf("--session is required")
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		sess, err := a.sessions.Load(cmd.Context(), sessionDir, a.credentials())
		if err != nil {
			return err
		}
		return render.Write(cmd.OutOrStdout(), sess.Story)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{titleCmd, charactersCmd, scenesCmd, placesCmd, dialogueCmd} {
		addSessionFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
	dialogueCmd.Flags().IntVar(&sceneIndex, "scene", 1, "scene number, from 1")
	dialogueCmd.Flags().BoolVar(&continueDialogue, "continue", false, "extend the existing dialogue")

	renderCmd.Flags().StringVar(&sessionDir, "session", "", "saved session directory, relative to the output dir")
	rootCmd.AddCommand(renderCmd)
}

// stageRunner opens the session, runs one stage and saves the result.
func stageRunner(stage func(context.Context, io.Writer, *app, *story.Session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
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
		if err := stage(ctx, w, a, sess); err != nil {
			return err
		}

		dir, err := a.export(ctx, sess)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, mutedStyle.Render("Session saved to "+dir))
		return nil
	}
}
