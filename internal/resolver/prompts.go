package resolver

const betSystemPrompt = "You are a JSON-only API. Never include explanations."

const betPrompt = `You are an API that extracts structured bet information from user input. Return a valid JSON object only.

Example input:
"$20 on LeBron over 25.5 points and Curry under 3.5 turnovers"

Expected output:
{
  "entry_fee": 20,
  "players": [
    {"name": "LeBron James", "bet_type": "over", "line_value": 25.5, "stat_type": "points"},
    {"name": "Stephen Curry", "bet_type": "under", "line_value": 3.5, "stat_type": "turnovers"}
  ]
}

Use null for any field the user did not give, including entry_fee.

User input:
"%s"`

const playerPrompt = `You are an NBA player nickname resolver. Match the user input to a full player name.

Rules:
1. Only return a name if the input clearly refers to one NBA player.
2. Do not resolve generic terms like "goat" or "best player" unless they are an established nickname.
3. Return an empty string when you are not highly confident.

Valid players:
%s

User input: "%s"

Return only the matching full name from the list, as plain text.`

const teamPrompt = `You are an NBA team name resolver. Decide whether the input refers to an NBA team.

User input: "%s"

If it does, return only the team's 3-letter code (for example LAL, GSW, BOS). Otherwise return an empty string.`

const rosterPrompt = `You are an NBA roster expert. Return the players who currently play for %s.

Players in the dataset:
%s

Return only a JSON list of names from the list above who are on the current %s roster.`

const classifyPrompt = `You are a strict classifier. Answer "yes" only if the user is searching or filtering existing player prop lines rather than placing a bet.

Search examples (yes):
- show me stephen curry props
- what are the lakers lines?
- lines for anthony edwards?
- warriors

Bet examples (no):
- i want to bet on steph curry over 25.5 points
- add lebron under 22
- place a bet on luka over 1.5 steals for $20

Query:
"%s"

Reply with one word: yes or no.`
