package search

// Profile 一路检索的查询改写规则与站点范围
type Profile struct {
	Name           string   // web / paper / community
	Prefix         string   // 查询前缀
	Suffix         string   // 查询后缀
	Depth          string   // basic / advanced
	IncludeDomains []string // 限定站点，为空不限
	MaxResults     int      // 缺省条数
}

// Query 按规则改写查询
func (p Profile) Query(q string) string {
	return p.Prefix + q + p.Suffix
}

// limit 调用方未指定条数时使用缺省值
func (p Profile) limit(maxResults int) int {
	if maxResults > 0 {
		return maxResults
	}
	return p.MaxResults
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// WebProfile 3D 打印社区与厂商站点
func WebProfile(maxResults int) Profile {
	return Profile{
		Name:   "web",
		Prefix: "3D printing FDM ",
		Depth:  "advanced",
		IncludeDomains: []string{
			"prusa3d.com",
			"help.prusa3d.com",
			"reddit.com/r/3Dprinting",
			"reddit.com/r/FixMyPrint",
			"all3dp.com",
			"simplify3d.com",
			"community.ultimaker.com",
			"matterhackers.com",
		},
		MaxResults: orDefault(maxResults, 5),
	}
}

// PaperProfile 学术论文站点
func PaperProfile(maxResults int) Profile {
	return Profile{
		Name:   "paper",
		Prefix: "FDM 3D printing ",
		Suffix: " research paper",
		Depth:  "advanced",
		IncludeDomains: []string{
			"arxiv.org",
			"ieee.org",
			"sciencedirect.com",
			"springer.com",
			"mdpi.com",
			"researchgate.net",
		},
		MaxResults: orDefault(maxResults, 3),
	}
}

// CommunityProfile reddit 讨论帖
func CommunityProfile(maxResults int) Profile {
	return Profile{
		Name:       "community",
		Prefix:     "site:reddit.com/r/3Dprinting OR site:reddit.com/r/FixMyPrint ",
		Depth:      "basic",
		MaxResults: orDefault(maxResults, 5),
	}
}
