// Package classify decides whether a candidate posting is an entry-level
// remote support role worth reporting.
//
// A Filter runs ordered checks (spam, area, geography, seniority, experience,
// certifications) over case- and accent-folded text; the first failing check
// determines the Verdict. Phrase lists are held in an immutable Rules value
// and matched through the Signal interface, so a smarter classifier can stand
// in for PhraseSet without touching the control flow.
package classify
