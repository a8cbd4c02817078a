package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"replyd/internal/config"
)

// --- reply ---

var replyCmd = &cobra.Command{
	Use:   "reply <incoming message>",
	Short: "Draft a reply to an incoming message",
	Long: `Draft a reply to an incoming message.

Examples:
  replyd reply "you coming tonight?"
  replyd reply --contact Sam "you coming tonight?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		incoming := strings.Join(args, " ")
		contact, _ := cmd.Flags().GetString("contact")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"incoming": incoming}
		if contact != "" {
			body["contact"] = contact
		}

		resp, err := client.post(cmd.Context(), "/reply", body)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result["draft"])
		return nil
	},
}

func init() {
	replyCmd.Flags().String("contact", "", "name of the sender")
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record the outcome of a drafted reply",
	Long: `Record the outcome of a drafted reply.

Examples:
  replyd feedback --accepted --final "Sweet, see you at eight"
  replyd feedback --draft "sounds good" --final "sounds great" --accepted --edited`,
	RunE: func(cmd *cobra.Command, args []string) error {
		incoming, _ := cmd.Flags().GetString("incoming")
		draft, _ := cmd.Flags().GetString("draft")
		final, _ := cmd.Flags().GetString("final")
		contact, _ := cmd.Flags().GetString("contact")
		accepted, _ := cmd.Flags().GetBool("accepted")
		edited, _ := cmd.Flags().GetBool("edited")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"incoming": incoming,
			"draft":    draft,
			"final":    final,
			"contact":  contact,
			"accepted": accepted,
			"edited":   edited,
		}

		resp, err := client.post(cmd.Context(), "/feedback", body)
		if err != nil {
			return err
		}

		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Feedback recorded")
		return nil
	},
}

func init() {
	feedbackCmd.Flags().String("incoming", "", "the incoming message the draft answered")
	feedbackCmd.Flags().String("draft", "", "the draft that was proposed")
	feedbackCmd.Flags().String("final", "", "the text that was actually sent")
	feedbackCmd.Flags().String("contact", "", "name of the sender")
	feedbackCmd.Flags().Bool("accepted", false, "the draft was accepted")
	feedbackCmd.Flags().Bool("edited", false, "the draft was edited before sending")
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the style profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field (list fields take comma-separated values)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]

		body := map[string]any{}
		switch field {
		case "style_rules":
			body[field] = value
		case "preferred_phrases", "banned_words":
			items := []string{}
			for _, part := range strings.Split(value, ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					items = append(items, part)
				}
			}
			body[field] = items
		default:
			return fmt.Errorf("unknown profile field %q; valid fields: style_rules, preferred_phrases, banned_words", field)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/profile", body)
		if err != nil {
			return err
		}

		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Set %s", field)
		return nil
	},
}

var profileEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open profile JSON in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi"
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/profile")
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return err
		}

		tmpFile, err := os.CreateTemp("", "replyd-profile-*.json")
		if err != nil {
			return fmt.Errorf("creating temp file: %w", err)
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := tmpFile.Write(data); err != nil {
			tmpFile.Close()
			return err
		}
		tmpFile.Close()

		editorCmd := exec.Command(editor, tmpPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			return fmt.Errorf("editor exited with error: %w", err)
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		var fields map[string]any
		if err := json.Unmarshal(edited, &fields); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		postResp, err := client.post(cmd.Context(), "/profile", fields)
		if err != nil {
			return err
		}
		defer postResp.Body.Close()

		if postResp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", postResp.StatusCode)
		}

		printSuccess("Profile updated")
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileEditCmd)
}

// --- memory ---

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear per-contact conversation memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show <contact>",
	Short: "Show recent turns for a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/memory?contact=%s&limit=%d", url.QueryEscape(args[0]), limit)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result struct {
			Contact string `json:"contact"`
			Turns   []struct {
				Incoming  string `json:"incoming"`
				Draft     string `json:"draft"`
				Final     string `json:"final"`
				CreatedAt string `json:"created_at"`
			} `json:"turns"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Turns) == 0 {
			fmt.Println("No turns recorded.")
			return nil
		}

		for _, turn := range result.Turns {
			fmt.Printf("%s\n", colorize(colorCyan, turn.CreatedAt))
			if turn.Incoming != "" {
				fmt.Printf("  incoming: %s\n", turn.Incoming)
			}
			if turn.Draft != "" {
				fmt.Printf("  draft:    %s\n", turn.Draft)
			}
			if turn.Final != "" {
				fmt.Printf("  final:    %s\n", turn.Final)
			}
		}
		return nil
	},
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear <contact>",
	Short: "Delete all recorded turns for a contact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/memory?contact=" + url.QueryEscape(args[0])
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Cleared memory for %s", args[0])
		return nil
	},
}

func init() {
	memoryShowCmd.Flags().Int("limit", 10, "maximum number of turns to show")
	memoryCmd.AddCommand(memoryShowCmd)
	memoryCmd.AddCommand(memoryClearCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
