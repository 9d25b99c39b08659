package blockchain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const governanceABIJSON = `[
  {"type":"function","name":"createProposal","stateMutability":"nonpayable",
   "inputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"callData","type":"bytes"},{"name":"description","type":"string"}],
   "outputs":[{"name":"id","type":"uint256"}]},
  {"type":"function","name":"vote","stateMutability":"nonpayable",
   "inputs":[{"name":"id","type":"uint256"},{"name":"support","type":"bool"}],"outputs":[]},
  {"type":"function","name":"executeProposal","stateMutability":"nonpayable",
   "inputs":[{"name":"id","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"proposals","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"}],
   "outputs":[{"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"callData","type":"bytes"},{"name":"description","type":"string"},
              {"name":"blockStart","type":"uint256"},{"name":"blockEnd","type":"uint256"},{"name":"yesVotes","type":"uint256"},{"name":"noVotes","type":"uint256"},
              {"name":"executed","type":"bool"}]},
  {"type":"function","name":"nextProposalId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"hasVoted","stateMutability":"view",
   "inputs":[{"name":"","type":"uint256"},{"name":"","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"treasury","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"VOTING_PERIOD_BLOCKS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"ProposalCreated","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"proposer","type":"address","indexed":true},{"name":"target","type":"address","indexed":false},
             {"name":"value","type":"uint256","indexed":false},{"name":"description","type":"string","indexed":false},
             {"name":"blockStart","type":"uint256","indexed":false},{"name":"blockEnd","type":"uint256","indexed":false}]},
  {"type":"event","name":"Voted","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"voter","type":"address","indexed":true},{"name":"support","type":"bool","indexed":false}]},
  {"type":"event","name":"ProposalExecuted","anonymous":false,
   "inputs":[{"name":"id","type":"uint256","indexed":true},{"name":"target","type":"address","indexed":false},{"name":"value","type":"uint256","indexed":false}]}
]`

const treasuryABIJSON = `[
  {"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"releaseFunds","stateMutability":"nonpayable",
   "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
  {"type":"event","name":"FundsReleased","anonymous":false,
   "inputs":[{"name":"to","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"FundsReceived","anonymous":false,
   "inputs":[{"name":"from","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]}
]`

var (
	GovernanceABI = mustParseABI(governanceABIJSON)
	TreasuryABI   = mustParseABI(treasuryABIJSON)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("invalid contract abi: " + err.Error())
	}
	return parsed
}
