package chores

import (
	"errors"
	"fmt"
	"strings"
)

// Catalog holds every user-facing text for one locale.
type Catalog struct {
	Locale string

	Welcome       string
	HelpHeader    string
	Commands      map[string]string // command name -> menu/help description
	Unknown       string
	GenericError  string
	AddUsage      string
	AddOK         string
	RemoveUsage   string
	RemoveOK      string
	NoChatData    string
	NoChores      string
	DefaultsUsage string
	DefaultsOK    string
	TrashUsage    string

	InvalidSchedule     string
	NoDefaultAssignees  string
	NoEligibleAssignees string
	InvalidKey          string

	LeaderboardHeader [2]string

	trashTitle  string
	assignLine  string
	choreFormat string
	versionFmt  string
}

var catalogs = map[string]*Catalog{
	"de": {
		Locale:     "de",
		Welcome:    "🌟 Willkommen beim ChoreDistributionBot! Verwende /help, um die verfügbaren Befehle anzuzeigen.",
		HelpHeader: "🤖 Verfügbare Befehle:",
		Commands: map[string]string{
			"start":             "Starte den Bot",
			"help":              "Zeige diese Hilfemeldung an",
			"add_chore":         "Füge eine wiederkehrende Aufgabe hinzu",
			"remove_chore":      "Entferne eine Aufgabe anhand des Schlüssels",
			"list_chores":       "Zeige alle Aufgaben für diesen Chat an",
			"show_leaderboard":  "Zeige das Leaderboard von abgeschlossenen Aufgaben an",
			"trash":             "Füge eine Standardaufgabe hinzu",
			"set_default_users": "Lege Standardbenutzer für Aufgaben fest",
			"version":           "Zeige die Bot-Version und Datenstruktur-Version an",
		},
		Unknown:       "❌ Unbekannter Befehl. Verwende /help, um die verfügbaren Befehle anzuzeigen.",
		GenericError:  "❌ Da ist etwas schiefgelaufen. Bitte versuche es später erneut.",
		AddUsage:      "✨ Bitte gib die Details der Aufgabe im Format an: /add_chore Aufgabe 1,Aufgabe 2,...;Cron-Schedule;@Benutzer1,@Benutzer2,...",
		AddOK:         "✅ Aufgabe erfolgreich hinzugefügt!",
		RemoveUsage:   "✨ Bitte gib den Schlüssel der Aufgabe an, die du mit /remove_chore [Schlüssel] entfernen möchtest.",
		RemoveOK:      "✅ Aufgabe erfolgreich entfernt!",
		NoChatData:    "📋 Keine Daten für diesen Chat verfügbar.",
		NoChores:      "📋 Keine Aufgaben verfügbar. Verwende /add_chore, um wiederkehrende Aufgaben hinzuzufügen.",
		DefaultsUsage: "❌ Keine Benutzer angegeben. Verwende /set_default_users mit mindestens einem Benutzer.",
		DefaultsOK:    "✅ Standardbenutzer erfolgreich festgelegt.",
		TrashUsage:    "❌ Kein Müll festgelegt. Verwende /trash mit einem Argument.",

		InvalidSchedule:     "❌ Ungültiges Cron-Schedule-Format. Bitte gib ein gültiges Cron-Schedule an.",
		NoDefaultAssignees:  "❌ Standardbenutzer sind nicht festgelegt. Verwende /set_default_users, um Standardbenutzer festzulegen.",
		NoEligibleAssignees: "❌ Keine Zuständigen angegeben. Gib mindestens einen Benutzer an.",
		InvalidKey:          "❌ Ungültiger Aufgabenschlüssel. Bitte gib einen gültigen Schlüssel an.",

		LeaderboardHeader: [2]string{"Name", "Aufgaben"},

		trashTitle:  "%smüll rausbringen",
		assignLine:  "🧹 %s wurde %s zugewiesen.",
		choreFormat: "🔑 Schlüssel: %d\n🧹 Aufgaben:\n- %s\n⏰ Cron-Schedule: %s\n👷🏼 Zuständige:\n- %s\n",
		versionFmt:  "🤖 Bot-Version: %s\n📊 Datenstruktur-Version: %s",
	},
	"en": {
		Locale:     "en",
		Welcome:    "🌟 Welcome to ChoreDistributionBot! Use /help to see the available commands.",
		HelpHeader: "🤖 Available commands:",
		Commands: map[string]string{
			"start":             "Start the bot",
			"help":              "Show this help message",
			"add_chore":         "Add a recurring chore",
			"remove_chore":      "Remove a chore by its key",
			"list_chores":       "List all chores of this chat",
			"show_leaderboard":  "Show the leaderboard of assigned chores",
			"trash":             "Assign a trash run right now",
			"set_default_users": "Set the default users for chores",
			"version":           "Show the bot and data structure version",
		},
		Unknown:       "❌ Unknown command. Use /help to see the available commands.",
		GenericError:  "❌ Something went wrong. Please try again later.",
		AddUsage:      "✨ Please provide the chore details as: /add_chore Chore 1,Chore 2,...;cron schedule;@user1,@user2,...",
		AddOK:         "✅ Chore added!",
		RemoveUsage:   "✨ Please provide the key of the chore to remove: /remove_chore [key]",
		RemoveOK:      "✅ Chore removed!",
		NoChatData:    "📋 No data available for this chat.",
		NoChores:      "📋 No chores yet. Use /add_chore to add recurring chores.",
		DefaultsUsage: "❌ No users given. Use /set_default_users with at least one user.",
		DefaultsOK:    "✅ Default users set.",
		TrashUsage:    "❌ No trash type given. Use /trash with an argument.",

		InvalidSchedule:     "❌ Invalid cron schedule. Please provide a valid cron schedule.",
		NoDefaultAssignees:  "❌ No default users set. Use /set_default_users to set them.",
		NoEligibleAssignees: "❌ No assignees given. Please name at least one user.",
		InvalidKey:          "❌ Invalid chore key. Please provide a valid key.",

		LeaderboardHeader: [2]string{"Name", "Chores"},

		trashTitle:  "take out the %s trash",
		assignLine:  "🧹 %s was assigned to %s.",
		choreFormat: "🔑 Key: %d\n🧹 Chores:\n- %s\n⏰ Cron schedule: %s\n👷🏼 Assignees:\n- %s\n",
		versionFmt:  "🤖 Bot version: %s\n📊 Data structure version: %s",
	},
}

// DefaultLocale matches the language the bot was first written for.
const DefaultLocale = "de"

// Locales lists the supported catalog codes.
func Locales() []string { return []string{"de", "en"} }

// CatalogFor returns the catalog for locale, falling back to DefaultLocale.
func CatalogFor(locale string) *Catalog {
	if c, ok := catalogs[strings.ToLower(strings.TrimSpace(locale))]; ok {
		return c
	}
	return catalogs[DefaultLocale]
}

// ErrorText maps a registry error to its reply. ok is false for errors that
// have no dedicated text; callers should log those.
func (c *Catalog) ErrorText(err error) (text string, ok bool) {
	switch {
	case errors.Is(err, ErrInvalidSchedule):
		return c.InvalidSchedule, true
	case errors.Is(err, ErrNoDefaultAssignees):
		return c.NoDefaultAssignees, true
	case errors.Is(err, ErrNoEligibleAssignees):
		return c.NoEligibleAssignees, true
	case errors.Is(err, ErrNoTitles), errors.Is(err, ErrUsage):
		return c.AddUsage, true
	case errors.Is(err, ErrUnknownChatData):
		return c.NoChatData, true
	case errors.Is(err, ErrInvalidKey):
		return c.InvalidKey, true
	default:
		return c.GenericError, false
	}
}

func (c *Catalog) AssignmentLine(a Assignment) string {
	return fmt.Sprintf(c.assignLine, a.Title, a.Assignee)
}

// TrashTitle builds the /trash chore title from its label.
func (c *Catalog) TrashTitle(label string) string {
	return fmt.Sprintf(c.trashTitle, strings.TrimSpace(label))
}

func (c *Catalog) FormatChore(ch Chore) string {
	return fmt.Sprintf(c.choreFormat, ch.Key,
		strings.Join(ch.Titles, "\n- "),
		ch.Schedule,
		strings.Join(ch.Assignees, "\n- "))
}

// FormatChoreList renders chores in stored order, one block per chore.
func (c *Catalog) FormatChoreList(list []Chore) string {
	blocks := make([]string, 0, len(list))
	for _, ch := range list {
		blocks = append(blocks, c.FormatChore(ch))
	}
	return strings.Join(blocks, "\n")
}

func (c *Catalog) Version(botVersion, dataVersion string) string {
	return fmt.Sprintf(c.versionFmt, botVersion, dataVersion)
}
