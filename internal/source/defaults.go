package source

// DefaultQuery is used by built-in sources with a {query} placeholder.
const DefaultQuery = "it support"

// DefaultSources is the built-in board list used when no sources are
// configured.
func DefaultSources() []Definition {
	return []Definition{
		{
			Name:         "WeWorkRemotely",
			ListingURL:   "https://weworkremotely.com/categories/remote-customer-support-jobs",
			LinkSelector: `section.jobs li a[href*="/remote-jobs/"]`,
		},
		{
			Name:       "RemoteOK",
			ListingURL: "https://remoteok.com/remote-support-jobs",
			Listing:    ListingCards,
			Card: CardSelectors{
				Item:     "tr.job",
				Title:    `h2[itemprop="title"]`,
				Link:     "a.preventLink",
				Company:  `h3[itemprop="name"]`,
				Location: "div.location",
			},
		},
		{
			Name:         "Himalayas",
			ListingURL:   "https://himalayas.app/jobs?q={query}",
			Query:        DefaultQuery,
			LinkSelector: `a[href*="/jobs/"]`,
			Render:       "auto",
		},
		{
			Name:         "Remote.co",
			ListingURL:   "https://remote.co/remote-jobs/customer-service/",
			LinkSelector: `a[href*="/job/"]`,
		},
		{
			Name:         "Jobicy",
			ListingURL:   "https://jobicy.com/?search_keywords={query}",
			Query:        DefaultQuery,
			LinkSelector: `a[href*="/jobs/"]`,
		},
		{
			Name:         "Working Nomads",
			ListingURL:   "https://www.workingnomads.com/jobs?category=sysadmin",
			LinkSelector: `h4 a[href*="/jobs/"]`,
			Render:       "always",
			WaitSelector: "div.job-wrapper",
		},
	}
}
