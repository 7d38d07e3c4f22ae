// Package portfolio holds the project showcase catalog and the geometry of
// its horizontal scroll track.
package portfolio

import "portfolio-site/internal/domain"

var catalog = []domain.Project{
	{
		ID:          1,
		Image:       "/p1.png",
		Title:       "Vatstech - Modern Web Platform",
		Description: "A modern web platform offering secure user accounts, AI-powered insights, and client engagement tools. Built with TypeScript for robust type safety and scalability.",
		Link:        "https://github.com/Harshpandeyiitian04/Vatstech",
	},
	{
		ID:          2,
		Image:       "/p2.png",
		Title:       "Cars24 - AutoTech Platform",
		Description: "Developed a dynamic website for Cars24 using Next.js for server-side rendering, optimized font loading with Geist font family, and implemented API routes for backend functionality.",
		Link:        "https://github.com/Harshpandeyiitian04/Cars24",
	},
	{
		ID:          3,
		Image:       "/p3.png",
		Title:       "TradeX - Stock Market Tracker",
		Description: "Track real-time stock prices, get personalized alerts and explore detailed company insights. Full-stack Next.js application with real-time data integration.",
		Link:        "https://github.com/Harshpandeyiitian04/TradeX",
	},
	{
		ID:          4,
		Image:       "/p4.png",
		Title:       "Xpecto '25 - IIT Mandi Fest Website",
		Description: "Official website for Xpecto '25, the annual fest of IIT Mandi. Event management platform with real-time updates, user authentication via Clerk, and Supabase for data management.",
		Link:        "https://github.com/Harshpandeyiitian04/xpecto-25",
	},
	{
		ID:          5,
		Image:       "/p5.png",
		Title:       "GenWeb - AI Website Builder",
		Description: "AI-powered website generation tool using Next.js and Agent.ai. Features automated GitHub repository creation, live preview functionality, and dynamic file structure generation.",
		Link:        "https://github.com/Harshpandeyiitian04/GenWeb",
	},
}

// Projects returns the catalog in display order. The returned slice is a
// copy; callers may modify it freely.
func Projects() []domain.Project {
	out := make([]domain.Project, len(catalog))
	copy(out, catalog)
	return out
}
