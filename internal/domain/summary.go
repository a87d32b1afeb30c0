package domain

import (
	"sort"
	"time"
)

// UserStanding 是汇总中单个活跃用户的当前成绩条目。
type UserStanding struct {
	UserID           uint   `json:"userId"`
	DisplayName      string `json:"displayName"`
	Category         string `json:"category"`
	IsCaptain        bool   `json:"isCaptain"`
	Points           int64  `json:"points"`
	MultipliedPoints int64  `json:"multipliedPoints"`
	Units            int64  `json:"units"`
}

// TeamStanding 是单支队伍的汇总：活跃用户加退役归档的合计。
type TeamStanding struct {
	TeamID           uint               `json:"teamId"`
	TeamName         string             `json:"teamName"`
	Rank             int                `json:"rank"`
	Points           int64              `json:"points"`
	MultipliedPoints int64              `json:"multipliedPoints"`
	Units            int64              `json:"units"`
	ActiveUsers      []UserStanding     `json:"activeUsers"`
	RetiredUsers     []RetiredUserStats `json:"retiredUsers"`
}

// CategoryStanding 是按硬件类别划分的个人排行。
type CategoryStanding struct {
	Category string         `json:"category"`
	Users    []UserStanding `json:"users"`
}

// CompetitionSummary 是整个竞赛的反规范化汇总。
// 它是各用户行的纯函数，因计算昂贵而被缓存，任何相关写入都会使其失效。
type CompetitionSummary struct {
	GeneratedAt      time.Time          `json:"generatedAt"`
	Points           int64              `json:"points"`
	MultipliedPoints int64              `json:"multipliedPoints"`
	Units            int64              `json:"units"`
	Teams            []TeamStanding     `json:"teams"`
	Categories       []CategoryStanding `json:"categories"`
}

// BuildCompetitionSummary 从权威的各用户行构建完整汇总。
// hourly 以用户ID为键；缺失条目按零成绩处理。
func BuildCompetitionSummary(teams []Team, users []User, hourly map[uint]HourlyTcStats, retired []RetiredUserStats, now time.Time) CompetitionSummary {
	summary := CompetitionSummary{GeneratedAt: now}

	retiredByTeam := make(map[uint][]RetiredUserStats)
	for _, r := range retired {
		retiredByTeam[r.TeamID] = append(retiredByTeam[r.TeamID], r)
	}

	byCategory := make(map[string][]UserStanding)

	for _, team := range teams {
		standing := TeamStanding{
			TeamID:       team.ID,
			TeamName:     team.Name,
			ActiveUsers:  []UserStanding{},
			RetiredUsers: retiredByTeam[team.ID],
		}

		for _, u := range users {
			if u.TeamID != team.ID {
				continue
			}
			h := hourly[u.ID]
			entry := UserStanding{
				UserID:           u.ID,
				DisplayName:      u.DisplayName,
				Category:         u.Category,
				IsCaptain:        u.IsCaptain,
				Points:           h.Points,
				MultipliedPoints: h.MultipliedPoints,
				Units:            h.Units,
			}
			standing.ActiveUsers = append(standing.ActiveUsers, entry)
			standing.Points += entry.Points
			standing.MultipliedPoints += entry.MultipliedPoints
			standing.Units += entry.Units
			byCategory[u.Category] = append(byCategory[u.Category], entry)
		}

		// 退役归档继续计入队伍合计
		for _, r := range standing.RetiredUsers {
			standing.Points += r.Points
			standing.MultipliedPoints += r.MultipliedPoints
			standing.Units += r.Units
		}

		sortStandings(standing.ActiveUsers)
		summary.Teams = append(summary.Teams, standing)
		summary.Points += standing.Points
		summary.MultipliedPoints += standing.MultipliedPoints
		summary.Units += standing.Units
	}

	// 队伍按倍率后积分降序排名
	sort.SliceStable(summary.Teams, func(i, j int) bool {
		return summary.Teams[i].MultipliedPoints > summary.Teams[j].MultipliedPoints
	})
	for i := range summary.Teams {
		summary.Teams[i].Rank = i + 1
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		entries := byCategory[c]
		sortStandings(entries)
		summary.Categories = append(summary.Categories, CategoryStanding{Category: c, Users: entries})
	}

	return summary
}

func sortStandings(entries []UserStanding) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MultipliedPoints > entries[j].MultipliedPoints
	})
}
