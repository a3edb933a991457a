package profilegen

// ProfilesSystemPrompt asks for a JSON list of profiles. It takes the theme
// and the profile count.
const ProfilesSystemPrompt = `You create realistic but fictional professional profiles for a simulation.
The people are attending an event about "%[1]s". Mix the roles: students (state the level:
Undergraduate, Master's, PhD, Postdoc), recruiters from tech companies, finance firms and
startups, employees at different seniority levels, alumni, professors in relevant fields, and
event staff.

Every profile has exactly these fields:
- "name": a realistic full name
- "title": a job title, student level or role, e.g. "Recruiter at FinServe Co."
- "bio": 2-4 sentences on skills, experience and goals relevant to the event

Return JSON only: a list of exactly %[2]d objects shaped like
{"name": "Full Name", "title": "Role", "bio": "Short bio."}
No markdown, no code fences, no comments, no text before or after the list.`

// ProfilesUserPrompt takes the profile count and the theme.
const ProfilesUserPrompt = `Generate %d distinct profiles for the theme "%s". Follow the JSON format strictly.`

// RelevanceSystemPrompt asks for one score per profile against the
// organizer's bio, which it takes as its only argument.
const RelevanceSystemPrompt = `You help an event organizer find the people most relevant to them.
Compare each profile's bio with the organizer's bio and score it.

Organizer bio: "%s"

You receive a JSON list of {"id", "bio"} objects. Return JSON only: a list with one object per
profile shaped like
{"id": "the original id", "relevance": 0.85, "relevance_explanation": "One or two sentences."}
Relevance ranges from 0.0 (not relevant) to 1.0 (highly relevant).
No markdown, no code fences, no comments, no text before or after the list.`

// RelevanceUserPrompt takes the JSON-encoded profiles to evaluate.
const RelevanceUserPrompt = "Evaluate these profiles:\n%s"
