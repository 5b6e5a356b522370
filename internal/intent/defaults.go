package intent

// Spec is the configurable half of an Entry.
type Spec struct {
	Intent   Name     `yaml:"intent" json:"intent"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// DefaultSpecs is the stock command table. Order matters: reports, alerts
// and the map are tried before the generic traffic phrases ("report traffic
// near melen" is a report), and weather impact/forecast come before the
// catch-all "weather".
func DefaultSpecs() []Spec {
	return []Spec{
		{TrafficReport, []string{
			"report traffic",
			"report an accident",
			"report accident",
			"report a jam",
			"report congestion",
			"report an incident",
			"report incident",
			"i want to report",
		}},
		{CheckAlerts, []string{
			"check alerts",
			"check my alerts",
			"any alerts",
			"traffic alerts",
			"show alerts",
			"notifications",
		}},
		{OpenMap, []string{
			"open map",
			"open the map",
			"show map",
			"show the map",
			"show me the map",
			"traffic map",
		}},
		{TrafficQuery, []string{
			"traffic situation",
			"how is the traffic",
			"how's the traffic",
			"what is the traffic",
			"what's the traffic",
			"traffic near",
			"traffic to",
			"traffic on",
			"traffic like",
			"traffic conditions",
			"check the traffic",
		}},
		{RouteCheck, []string{
			"check my route",
			"check route",
			"best route",
			"my route",
			"route to",
			"how do i get to",
			"directions to",
		}},
		{WeatherImpact, []string{
			"weather affect",
			"weather impact",
			"affect traffic",
			"rain affect",
			"safe to drive",
			"driving conditions",
		}},
		{WeatherForecast, []string{
			"forecast",
			"weather tomorrow",
			"weather later",
			"will it rain",
			"going to rain",
		}},
		{WeatherQuery, []string{
			"weather",
			"temperature",
			"is it raining",
			"how hot",
			"how cold",
		}},
		{Emergency, []string{
			"emergency",
			"help me",
			"i need help",
			"call the police",
			"call police",
			"ambulance",
		}},
	}
}
