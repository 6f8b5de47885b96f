package dashboard

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	prt "github.com/thecardroom/tcr/protocol"
)

func textinputBlink() tea.Cmd {
	return textinput.Blink
}

// setupForm asks for what the settings file is missing on first run.
func (m Model) setupForm() *form {
	cfg := m.config.Settings
	f := newForm("Settings", m.submitSetup, "Blockfrost project id", "Project data file", "Network (mainnet, preprod, preview)")
	f.secret(0)
	f.placeholder(1, "~/.tcr/projects.dat")
	if cfg != nil {
		f.set(0, cfg.Blockfrost.ProjectID)
		f.set(1, cfg.Common.DataFile)
		if cfg.Common.Network != string(prt.NetworkNone) {
			f.set(2, cfg.Common.Network)
		}
	}
	return f
}

func (m Model) submitSetup(values []string) (tea.Cmd, error) {
	projectID, dataFile, netName := values[0], values[1], values[2]
	if projectID == "" {
		return nil, errors.New("project id is required")
	}
	if dataFile == "" {
		return nil, errors.New("project data file is required")
	}
	network, err := prt.ParseNetwork(netName)
	if err != nil {
		return nil, err
	}
	if network == prt.NetworkNone {
		return nil, errors.New("choose a network")
	}
	if m.config.Settings == nil || m.config.Connect == nil {
		return nil, errors.New("dashboard started without settings")
	}

	cfg := m.config.Settings
	cfg.Blockfrost.ProjectID = projectID
	cfg.Common.DataFile = dataFile
	cfg.Common.Network = string(network)
	if err := cfg.Save(); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return connectCmd(m.config), nil
}

// syncStoreNetwork stamps a new project data file with the configured
// network. A file already bound to a network keeps it.
func (m Model) syncStoreNetwork() tea.Cmd {
	store := m.session.Store
	want := prt.NetworkNone
	if m.config.Settings != nil {
		want = prt.Network(m.config.Settings.Common.Network)
	}
	switch have := store.Network(); {
	case have == prt.NetworkNone && want != prt.NetworkNone:
		store.SetNetwork(want)
		return saveCmd(store, "project data created for "+string(want))
	case have != want:
		return result("", fmt.Errorf("project data is for %s, settings say %s", have, want))
	}
	return nil
}
