package cmd

import (
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage stored profiles",
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		listProfiles()
	},
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete <profile-id>",
	Short: "Delete a profile with its answers and question sets",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		deleteProfile(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd, profilesDeleteCmd)

	profilesDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}

func listProfiles() {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	ids, err := st.ListProfiles()
	if err != nil {
		logger.Fatal("listing profiles", zap.Error(err))
	}

	if len(ids) == 0 {
		fmt.Println("No profiles stored yet. Run 'prism generate' with --schema to create one.")
		return
	}

	for _, id := range ids {
		fmt.Println(id)
	}
}

func deleteProfile(cmd *cobra.Command, profileID string) {
	logger := newLogger()

	st := mustOpenStore(logger)
	defer st.Close()

	if _, err := st.GetProfile(profileID); err != nil {
		logger.Fatal("loading profile", zap.String("profile", profileID), zap.Error(err))
	}

	if cmd.Flag("yes").Value.String() != "true" {
		confirm := promptui.Select{
			Label: fmt.Sprintf("Delete profile %s and everything collected for it?", profileID),
			Items: []string{PromptYes, PromptNo},
		}

		_, action, err := confirm.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := st.DeleteProfile(profileID); err != nil {
		logger.Fatal("deleting profile", zap.Error(err))
	}

	logger.Info("profile deleted", zap.String("profile", profileID))
}
