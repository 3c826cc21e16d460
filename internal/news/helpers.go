package news

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/abelbrown/medwatch/internal/model"
)

// CategoryInfo is the display data attached to an article outside its
// category list.
type CategoryInfo struct {
	Key      string
	Name     string
	Icon     string
	Color    string
	Gradient string
}

// Tagged is an article together with the category it was selected for.
type Tagged struct {
	model.Article
	Category CategoryInfo
}

func infoOf(c model.Category) CategoryInfo {
	return CategoryInfo{Key: c.Key, Name: c.Name, Icon: c.Icon, Color: c.Color, Gradient: c.Gradient}
}

// Featured returns the first article of each non-empty category.
func Featured(r model.Result) []Tagged {
	var out []Tagged
	for _, c := range r.Categories {
		if len(c.Articles) == 0 {
			continue
		}
		out = append(out, Tagged{Article: c.Articles[0], Category: infoOf(c.Category)})
	}
	return out
}

// Search returns every article whose title contains term,
// case-insensitively, in category order. An empty term matches all.
func Search(r model.Result, term string) []Tagged {
	t := strings.ToLower(term)
	var out []Tagged
	for _, c := range r.Categories {
		info := infoOf(c.Category)
		for _, a := range c.Articles {
			if strings.Contains(strings.ToLower(a.Title), t) {
				out = append(out, Tagged{Article: a, Category: info})
			}
		}
	}
	return out
}

// All returns every article of r, tagged, in category order.
func All(r model.Result) []Tagged {
	return Search(r, "")
}

// FormatRelativeDate renders the age of t in French whole days.
func FormatRelativeDate(t, now time.Time) string {
	days := int(math.Floor(math.Abs(now.Sub(t).Hours()) / 24))
	switch days {
	case 0:
		return "Aujourd'hui"
	case 1:
		return "Hier"
	default:
		return fmt.Sprintf("Il y a %d jours", days)
	}
}

// CategoryStats summarizes one category of a run.
type CategoryStats struct {
	Key      string
	Name     string
	Articles int
	English  int
	New      int
	Official int
}

// Stats returns per-category counts in category order.
func Stats(r model.Result) []CategoryStats {
	out := make([]CategoryStats, 0, len(r.Categories))
	for _, c := range r.Categories {
		s := CategoryStats{Key: c.Category.Key, Name: c.Category.Name, Articles: len(c.Articles)}
		for _, a := range c.Articles {
			if a.IsEnglish() {
				s.English++
			}
			if a.IsNew {
				s.New++
			}
			if a.Official {
				s.Official++
			}
		}
		out = append(out, s)
	}
	return out
}

func (s CategoryStats) String() string {
	return fmt.Sprintf("%s : %d items (%d EN)", s.Name, s.Articles, s.English)
}
