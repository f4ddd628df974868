package main

import (
	"fmt"
	"text/tabwriter"

	"niucard/internal/cardform"
	"niucard/internal/preview"
	"niucard/internal/ui"

	"github.com/spf13/cobra"
)

var (
	cardFields     cardform.Fields
	cardAvatarPath string
	cardVCardPath  string
	deleteYes      bool
)

func newCardsCmd() *cobra.Command {
	cardsCmd := &cobra.Command{
		Use:   "cards",
		Short: "List and manage your cards",
		Long: `Manage the cards owned by the logged-in account.

Available subcommands:
  list    - List your cards
  add     - Create a card
  edit    - Change a card; only the flags you pass are updated
  delete  - Delete a card after confirmation
  preview - Show the public view of any card`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List your cards",
		Args:  cobra.NoArgs,
		RunE:  runCardsList,
	}
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a card",
		Args:  cobra.NoArgs,
		RunE:  runCardsAdd,
	}
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a card",
		Args:  cobra.ExactArgs(1),
		RunE:  runCardsEdit,
	}
	deleteCmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a card",
		Args:  cobra.ExactArgs(1),
		RunE:  runCardsDelete,
	}
	previewCmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Show the public view of a card",
		Args:  cobra.ExactArgs(1),
		RunE:  runCardsPreview,
	}

	for _, c := range []*cobra.Command{addCmd, editCmd} {
		c.Flags().StringVar(&cardFields.Name, "name", "", "Name on the card")
		c.Flags().StringVar(&cardFields.Email, "email", "", "Contact e-mail")
		c.Flags().StringVar(&cardFields.Birthday, "birthday", "", "Birthday as YYYY-MM-DD")
		c.Flags().StringVar(&cardFields.Profession, "profession", "", "Profession or title")
		c.Flags().StringVar(&cardFields.LineLink, "line", "", "LINE contact link")
		c.Flags().StringVar(&cardFields.FBLink, "fb", "", "Facebook contact link")
		c.Flags().StringVar(&cardAvatarPath, "avatar", "", "Avatar image (png, jpg, jpeg, gif)")
		c.Flags().StringVar(&cardVCardPath, "vcf", "", "vCard file (.vcf)")
	}
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("email")
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	cardsCmd.AddCommand(listCmd, addCmd, editCmd, deleteCmd, previewCmd)
	return cardsCmd
}

func runCardsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	dash := newEnv(cmd).dashboard(nil)
	if !dash.Mount(ctx) {
		return errNotLoggedIn
	}
	cards := dash.Cards()
	if len(cards) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cards yet. Create one with `cardctl cards add`.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPROFESSION")
	for _, c := range cards {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Email, c.Profession)
	}
	return w.Flush()
}

func runCardsAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	dash := newEnv(cmd).dashboard(nil)
	if !dash.Mount(ctx) {
		return errNotLoggedIn
	}
	form := dash.NewCard(ctx)
	form.Fields = cardFields
	if err := selectAttachments(form); err != nil {
		form.Cancel()
		return err
	}
	card, err := form.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created card %s\n", card.ID)
	return nil
}

func runCardsEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	dash := newEnv(cmd).dashboard(nil)
	if !dash.Mount(ctx) {
		return errNotLoggedIn
	}
	existing, ok := dash.Card(args[0])
	if !ok {
		return fmt.Errorf("card %s not found", args[0])
	}
	form := dash.Edit(ctx, existing)

	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("name", &form.Fields.Name, cardFields.Name)
	set("email", &form.Fields.Email, cardFields.Email)
	set("birthday", &form.Fields.Birthday, cardFields.Birthday)
	set("profession", &form.Fields.Profession, cardFields.Profession)
	set("line", &form.Fields.LineLink, cardFields.LineLink)
	set("fb", &form.Fields.FBLink, cardFields.FBLink)

	if err := selectAttachments(form); err != nil {
		form.Cancel()
		return err
	}
	if _, err := form.Submit(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Updated card %s\n", existing.ID)
	return nil
}

func selectAttachments(form *cardform.Form) error {
	if cardAvatarPath != "" {
		if err := form.SelectAvatar(cardAvatarPath); err != nil {
			return err
		}
	}
	if cardVCardPath != "" {
		if err := form.SelectVCard(cardVCardPath); err != nil {
			return err
		}
	}
	return nil
}

func runCardsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	var confirmer ui.Confirmer = ui.AutoConfirmer{Answer: true}
	if !deleteYes {
		confirmer = &ui.ConsoleConfirmer{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}
	e := newEnv(cmd)
	if e.store.Token() == "" {
		return errNotLoggedIn
	}
	deleted, err := e.dashboard(confirmer).RequestDelete(ctx, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		fmt.Fprintln(cmd.OutOrStdout(), "Card not deleted")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %s\n", args[0])
	return nil
}

func runCardsPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	page := preview.New(newEnv(cmd).client)
	state := page.Load(ctx, args[0])
	if err := page.Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	if state == preview.NotFound {
		return fmt.Errorf("card %s not found", args[0])
	}
	return nil
}
