package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tycoon/internal/game"
	"tycoon/internal/market"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	lockedStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("8"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func init() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 100
	}
	return w
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

// parseDollars accepts "1500", "1,500" or "$1,500.25".
func parseDollars(s string) (int64, error) {
	clean := strings.NewReplacer("$", "", ",", "", "_", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents := game.DollarsToCents(v)
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be > 0")
	}
	return cents, nil
}

func parseQuantity(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("quantity must be a whole number > 0")
	}
	return v, nil
}

func colorizeCents(v int64) string {
	text := signedCents(v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func signedCents(v int64) string {
	if v > 0 {
		return "+" + game.FormatCents(v)
	}
	return game.FormatCents(v)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func renderTable(headers []string, rows [][]string, dim func(row int) bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		BorderRow(false).
		Width(min(terminalWidth(), 120)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if dim != nil && dim(row) {
				return lockedStyle
			}
			return cellStyle
		})
	return t.Render()
}

func renderStatus(v game.View) {
	accent.Printf("\n== %s | Day %d/%d | %s ==\n", v.PlayerName, v.Day, v.TotalDays, strings.ToUpper(string(v.Status)))
	fmt.Printf("Location:     %s (home %s)\n", v.Location, v.HomeBase)
	fmt.Printf("Cash:         %s\n", game.FormatCents(v.Cash))
	fmt.Printf("Bank:         %s\n", game.FormatCents(v.Bank))
	fmt.Printf("Loan:         %s of %s\n", game.FormatCents(v.Loan), game.FormatCents(v.LoanLimit))
	fmt.Printf("Net Worth:    %s\n", game.FormatCents(v.NetWorth))
	fmt.Printf("Profit:       %s\n", colorizeCents(v.Stats.RealizedProfit))
	fmt.Printf("Reputation:   %d/%d\n", v.Reputation, game.MaxReputation)
	fmt.Printf("Storage:      %d/%d\n", v.StorageUsed, v.StorageCap)
	fmt.Printf("Daily costs:  %s\n", game.FormatCents(v.DailyCosts))

	fmt.Println()
	accent.Println("Cargo")
	if len(v.Inventory) == 0 {
		printInfo("Hold is empty.")
	} else {
		rows := make([][]string, 0, len(v.Inventory))
		for _, h := range v.Inventory {
			rows = append(rows, []string{
				truncate(h.Name, 22),
				strconv.Itoa(h.Quantity),
				game.FormatCents(h.AvgCost),
				game.FormatCents(h.SellPrice),
				game.FormatCents(h.MarketValue),
				signedCents(h.Unrealized),
			})
		}
		fmt.Println(renderTable([]string{"PRODUCT", "QTY", "AVG", "SELL", "VALUE", "P/L"}, rows, nil))
	}

	if len(v.Facilities) > 0 || len(v.Staff) > 0 {
		fmt.Println()
		accent.Println("Business")
		for _, f := range v.Facilities {
			fmt.Printf("  %-20s %s (day %d)\n", f.Type, f.Region, f.BuiltDay)
		}
		for role, n := range v.Staff {
			if n > 0 {
				fmt.Printf("  %-20s x%d\n", role, n)
			}
		}
	}

	if len(v.Events) > 0 {
		fmt.Println()
		accent.Println("World events")
		for _, e := range v.Events {
			warn.Printf("  %s", e.Name)
			fmt.Printf(" until day %d: %s\n", e.EndDay, e.Description)
		}
	}

	if n := len(v.Log); n > 0 {
		fmt.Println()
		accent.Println("Recent")
		for _, entry := range v.Log[max(0, n-5):] {
			fmt.Printf("  day %-3d %s\n", entry.Day, entry.Message)
		}
	}
	fmt.Println()
}

func renderMarket(m game.MarketView) {
	title := fmt.Sprintf("\n== %s market | day %d ==", m.Name, m.Day)
	if m.Remote {
		title += " (office intel)"
	}
	accent.Println(title)
	rows := make([][]string, 0, len(m.Quotes))
	for _, q := range m.Quotes {
		avail := strconv.Itoa(q.Available)
		if q.Locked {
			avail = "locked"
		}
		rows = append(rows, []string{
			q.ProductID,
			truncate(q.Name, 22),
			game.FormatCents(q.BuyPrice),
			game.FormatCents(q.SellPrice),
			avail,
			eventMarker(q),
		})
	}
	fmt.Println(renderTable([]string{"ID", "PRODUCT", "BUY", "SELL", "STOCK", "EVENT"}, rows, func(row int) bool {
		return row >= 0 && row < len(m.Quotes) && m.Quotes[row].Locked
	}))
}

func eventMarker(q market.Quote) string {
	switch {
	case q.Event > 1.0001:
		return fmt.Sprintf("x%.2f up", q.Event)
	case q.Event < 0.9999:
		return fmt.Sprintf("x%.2f down", q.Event)
	default:
		return ""
	}
}

func renderTrade(side string, r game.TradeResult) {
	verb := "Bought"
	if side == "sell" {
		verb = "Sold"
	}
	printSuccess(fmt.Sprintf("%s %d %s at %s for %s.", verb, r.Quantity, r.ProductID, game.FormatCents(r.UnitPrice), game.FormatCents(r.Total)))
	if side == "sell" {
		fmt.Printf("Profit: %s\n", colorizeCents(r.Profit))
	}
	fmt.Printf("Cash: %s  Reputation: %d\n", game.FormatCents(r.Cash), r.Reputation)
}

func renderTravel(r game.TravelResult) {
	printSuccess(fmt.Sprintf("Sailed %s -> %s in %d day(s), fare %s.", r.From, r.To, r.Days, game.FormatCents(r.Cost)))
	if r.DailyCosts > 0 {
		fmt.Printf("Upkeep and salaries: %s\n", game.FormatCents(r.DailyCosts))
	}
	if r.Interest != 0 {
		fmt.Printf("Net interest: %s\n", colorizeCents(r.Interest))
	}
	for _, inc := range r.Incidents {
		printError(inc.Message)
	}
	for _, id := range r.Expired {
		printInfo("Event ended: " + id)
	}
	for _, ev := range r.NewEvents {
		if def, ok := market.LookupEvent(ev.ID); ok {
			printWarn(fmt.Sprintf("News: %s (%s)", def.Name, def.Description))
		}
	}
	if r.Finished {
		accent.Println("The trading season is over. Run `gtt submit` to post your score.")
	}
}

func renderLeaderboard(rows []game.LeaderboardRow) {
	accent.Println("\n== LEADERBOARD ==")
	if len(rows) == 0 {
		printInfo("No scores yet.")
		return
	}
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.FormatInt(r.Rank, 10),
			truncate(r.PlayerName, 24),
			game.FormatCents(r.NetWorth),
			string(r.HomeBase),
			r.SubmittedAt.Local().Format("2006-01-02"),
		})
	}
	fmt.Println(renderTable([]string{"#", "PLAYER", "NET WORTH", "HOME", "DATE"}, out, nil))
}

func renderCatalog(c game.Catalog) {
	accent.Println("\n== LOCATIONS ==")
	for _, l := range c.Locations {
		fmt.Printf("  %-12s %-16s %s\n", l.Region, l.Name, l.Description)
	}
	accent.Println("\n== FACILITIES ==")
	for _, f := range c.Facilities {
		fmt.Printf("  %-20s %10s  upkeep %s/day  %s\n", f.Type, game.FormatCents(f.Cost), game.FormatCents(f.Upkeep), f.Description)
	}
	accent.Println("\n== STAFF ==")
	for _, s := range c.Staff {
		fmt.Printf("  %-12s %10s  salary %s/day  %s\n", s.Role, game.FormatCents(s.HireCost), game.FormatCents(s.Salary), s.Description)
	}
	fmt.Println()
}
