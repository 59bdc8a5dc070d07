package service

import (
	"strconv"

	"github.com/AdamBeresnev/post-battles/internal/notify"
	"github.com/google/uuid"
)

func msgPostCreated(postID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindPost, Text: "You created a new post.", Meta: notify.Meta{"postId": postID.String()}}
}

func msgVoteReceived(postID, matchID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindVote, Text: "Your post received a vote.", Meta: notify.Meta{"postId": postID.String(), "matchId": matchID.String()}}
}

func msgVoteCast(matchID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindVote, Text: "You voted in a match.", Meta: notify.Meta{"matchId": matchID.String()}}
}

func msgInMatch(tournamentID, matchID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindMatch, Text: "Your post is up for voting now!", Meta: notify.Meta{"tournamentId": tournamentID.String(), "matchId": matchID.String()}}
}

func msgBye(tournamentID uuid.UUID, round int) notify.Message {
	return notify.Message{Kind: notify.KindRound, Text: "Your post advances to the next round automatically.", Meta: notify.Meta{"tournamentId": tournamentID.String(), "round": strconv.Itoa(round)}}
}

func msgMatchWon(matchID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindRound, Text: "Congratulations! Your post won this round.", Meta: notify.Meta{"matchId": matchID.String()}}
}

func msgMatchLost(matchID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindRound, Text: "Your post was eliminated this round.", Meta: notify.Meta{"matchId": matchID.String()}}
}

func msgTournamentAdvanced(tournamentID uuid.UUID, round int) notify.Message {
	return notify.Message{Kind: notify.KindTournament, Text: "The tournament advanced to a new round.", Meta: notify.Meta{"tournamentId": tournamentID.String(), "round": strconv.Itoa(round)}}
}

func msgRoundStarted(tournamentID uuid.UUID, round int) notify.Message {
	return notify.Message{Kind: notify.KindRound, Text: "A new round started in the tournament.", Meta: notify.Meta{"tournamentId": tournamentID.String(), "round": strconv.Itoa(round)}}
}

func msgTournamentReset(tournamentID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindTournament, Text: "The tournament was restarted. A new round started.", Meta: notify.Meta{"tournamentId": tournamentID.String(), "round": "1"}}
}

func msgChampion(tournamentID, postID uuid.UUID) notify.Message {
	return notify.Message{Kind: notify.KindTournament, Text: "Your post won the tournament!", Meta: notify.Meta{"tournamentId": tournamentID.String(), "postId": postID.String()}}
}
