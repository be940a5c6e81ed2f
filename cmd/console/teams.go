package main

import (
	"fmt"

	"github.com/ashureev/teamconsole/internal/domain"
	"github.com/spf13/cobra"
)

var (
	teamsCrumb  = domain.PathEntry{Label: "Teams", CurrentPath: "/teams", TranslationKey: "nav.teams"}
	agentsCrumb = domain.PathEntry{Label: "Agents", TranslationKey: "nav.agents"}
)

func teamCrumb(t *domain.Team) domain.PathEntry {
	return domain.PathEntry{
		Label:       t.Name,
		CurrentPath: "/teams/" + t.ID,
		ExtraData:   map[string]any{"teamId": t.ID},
	}
}

func newTeamsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List and inspect teams",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your teams",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			teams, err := a.client.ListTeams(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == "yaml" {
				return printYAML(out, teams)
			}
			a.nav.Replace([]domain.PathEntry{teamsCrumb})
			a.printTrail(out)
			if len(teams) == 0 {
				writeln(out, dimStyle.Render("No teams yet."))
				return nil
			}
			for _, t := range teams {
				writeln(out, titleStyle.Render(t.Name)+" "+idStyle.Render(t.ID))
				if t.Description != "" {
					writeln(out, "  "+t.Description)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <team-id>",
		Short: "Show a team and its agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			team, err := a.client.GetTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			agents, err := a.client.ListTeamAgents(cmd.Context(), team.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == "yaml" {
				return printYAML(out, struct {
					*domain.Team
					Agents []domain.Agent `json:"agents"`
				}{team, agents})
			}
			a.nav.Replace([]domain.PathEntry{teamsCrumb, teamCrumb(team)})
			a.printTrail(out)
			writeln(out, titleStyle.Render(team.Name)+" "+idStyle.Render(team.ID))
			if team.Description != "" {
				writeln(out, team.Description)
			}
			writeln(out, dimStyle.Render(fmt.Sprintf("%d agent(s)", len(agents))))
			return nil
		},
	})
	return cmd
}

func newAgentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <team-id>",
		Short: "List the agents of a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			team, err := a.client.GetTeam(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			agents, err := a.client.ListTeamAgents(cmd.Context(), team.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == "yaml" {
				return printYAML(out, agents)
			}
			a.nav.Replace([]domain.PathEntry{teamsCrumb, teamCrumb(team)})
			a.nav.Append(agentsCrumb)
			a.printTrail(out)
			if len(agents) == 0 {
				writeln(out, dimStyle.Render("No agents in this team."))
				return nil
			}
			for _, ag := range agents {
				line := titleStyle.Render(ag.Name) + " " + idStyle.Render(ag.ID)
				if ag.Model != "" {
					line += dimStyle.Render(" " + ag.Model)
				}
				writeln(out, line)
			}
			return nil
		},
	})
	return cmd
}
