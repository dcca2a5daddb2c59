package games

// Two-player anagram race
// One person hosts on a shared screen; two players join from their phones
// Each round, the host screen shows a word, and both players see a list of candidates
// Exactly one candidate is an anagram of the hosted word
// First correct pick scores 5 and moves everyone to the next round
// A wrong pick costs 3; there is no floor, scores can go negative
// After ten rounds the host screen announces the winner (or a tie)

// Protocol notes:
// - Two-phase start: the host is told the room is full, then explicitly starts the countdown
// - Answers carry the round index they were made for; anything but the in-flight round is dropped
// - Restart keeps the room ID and host so nobody has to rescan the QR code

// Implementation details:
// - One hub goroutine per room drains all inbound messages, so no two requests
//   for the same room are ever processed concurrently
// - The countdown timer is the only self-triggered transition; it takes the
//   room lock before firing so teardown can cancel it cleanly
