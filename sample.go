package simforge

// SampleSequence builds the demonstration sequence: a Japan trip planning
// session with a Reflect row followed by a Plan row, both roots.
// newID supplies the sequence and row ids.
func SampleSequence(newID func() string) *Sequence {
	return &Sequence{
		ID:          newID(),
		Title:       "Sample Cognition Sequence",
		Description: "A demonstration of a synthetic cognition sequence",
		Context:     "You are an AI assistant helping a user plan a vacation to Japan.",
		Rows: []Row{
			{
				ID:   newID(),
				Goal: "Help the user plan a 10-day trip to Japan in spring.",
				Beliefs: Beliefs{
					"The user wants to visit Japan in spring.",
					"The user has approximately 10 days for the trip.",
					"Cherry blossom season is a popular time to visit Japan.",
					"The user has not specified a budget constraint.",
				},
				Operation: Operation{
					Type:        OperationReflect,
					Description: "Consider key factors for planning a Japan trip",
				},
				Output: "To plan an effective 10-day Japan trip in spring, I should consider: " +
					"1) Optimal cities/regions to visit in that timeframe, " +
					"2) Transportation options between locations, " +
					"3) Cherry blossom forecast for timing recommendations, " +
					"4) Must-see attractions that align with spring season, " +
					"5) Accommodation suggestions in each location.",
			},
			{
				ID:   newID(),
				Goal: "Help the user plan a 10-day trip to Japan in spring.",
				Beliefs: Beliefs{
					"The user wants to visit Japan in spring.",
					"Cherry blossom season typically runs from late March to early April.",
					"A 10-day trip allows for visiting 2-3 major regions in Japan.",
					"Tokyo, Kyoto, and Osaka are popular destinations for first-time visitors.",
				},
				Operation: Operation{
					Type:        OperationPlan,
					Description: "Create an itinerary outline",
				},
				Output: "Recommended 10-day Japan itinerary:\n" +
					"Days 1-3: Tokyo (Explore neighborhoods, visit Shinjuku Gyoen for cherry blossoms)\n" +
					"Days 4-7: Kyoto (Historic temples, Philosopher's Path for cherry blossoms)\n" +
					"Days 8-9: Osaka (Food experiences, day trip to Nara)\n" +
					"Day 10: Return to Tokyo for departure\n\n" +
					"This balanced itinerary allows for experiencing both modern and traditional Japan " +
					"while maximizing cherry blossom viewing opportunities.",
			},
		},
	}
}
