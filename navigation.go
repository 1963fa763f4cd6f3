package budgetgate

import "github.com/minus-twelve/budgetgate/types"

// NavItem is one sidebar entry. Groups have no URL of their own.
type NavItem struct {
	Title string    `json:"title"`
	URL   string    `json:"url,omitempty"`
	Items []NavItem `json:"items,omitempty"`
}

var consoleMenu = []NavItem{
	{Title: "Dashboard", URL: "/dashboard"},
	{Title: "Budget", URL: "/budget"},
	{Title: "Service", URL: "/service"},
	{Title: "Extension", URL: "/extension"},
	{Title: "Pricing", Items: []NavItem{
		{Title: "Free", URL: "/pricing/free"},
		{Title: "Paying", URL: "/pricing/paying"},
	}},
	{Title: "Settings", Items: []NavItem{
		{Title: "Users", URL: "/user"},
		{Title: "Configuration", URL: "/config"},
	}},
}

// Menu is the console menu as role may use it. Visibility comes from the same
// table the guard enforces, so the sidebar never offers a page that would
// bounce to the unauthorized page.
func (t RouteTable) Menu(role types.Role) []NavItem {
	return t.filterMenu(consoleMenu, role)
}

func (t RouteTable) filterMenu(items []NavItem, role types.Role) []NavItem {
	out := make([]NavItem, 0, len(items))
	for _, item := range items {
		if len(item.Items) > 0 {
			children := t.filterMenu(item.Items, role)
			if len(children) == 0 {
				continue
			}
			out = append(out, NavItem{Title: item.Title, Items: children})
			continue
		}
		if t.Permits(item.URL, role) {
			out = append(out, item)
		}
	}
	return out
}
