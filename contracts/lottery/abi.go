package lottery

// LotteryABI is the input ABI used to interact with the lottery contract.
const LotteryABI = `[
	{"type":"function","name":"spinWheel","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"buyTicket","stateMutability":"payable","inputs":[
		{"name":"_type","type":"uint8"},
		{"name":"_quantity","type":"uint256"}
	],"outputs":[]},
	{"type":"function","name":"claimPrize","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"getRoundDetails","stateMutability":"view","inputs":[
		{"name":"_type","type":"uint8"}
	],"outputs":[
		{"name":"endTime","type":"uint256"},
		{"name":"pool","type":"uint256"},
		{"name":"participantsCount","type":"uint256"},
		{"name":"ticketPriceWei","type":"uint256"}
	]},
	{"type":"function","name":"pendingWinnings","stateMutability":"view","inputs":[
		{"name":"user","type":"address"}
	],"outputs":[
		{"name":"","type":"uint256"}
	]},
	{"type":"function","name":"ticketCredits","stateMutability":"view","inputs":[
		{"name":"user","type":"address"},
		{"name":"lotteryType","type":"uint8"}
	],"outputs":[
		{"name":"","type":"uint256"}
	]},
	{"type":"function","name":"getEthCost","stateMutability":"view","inputs":[
		{"name":"usdAmount","type":"uint256"}
	],"outputs":[
		{"name":"","type":"uint256"}
	]},
	{"type":"event","name":"SpinResult","anonymous":false,"inputs":[
		{"name":"player","type":"address","indexed":true},
		{"name":"isWin","type":"bool","indexed":false},
		{"name":"prizeAmount","type":"uint256","indexed":false},
		{"name":"prizeType","type":"string","indexed":false}
	]},
	{"type":"event","name":"TicketPurchased","anonymous":false,"inputs":[
		{"name":"buyer","type":"address","indexed":true},
		{"name":"lotteryType","type":"uint8","indexed":true},
		{"name":"quantity","type":"uint256","indexed":false},
		{"name":"costETH","type":"uint256","indexed":false},
		{"name":"timestamp","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"LotteryDrawn","anonymous":false,"inputs":[
		{"name":"lotteryType","type":"uint8","indexed":true},
		{"name":"roundId","type":"uint256","indexed":false},
		{"name":"winners","type":"address[]","indexed":false},
		{"name":"prizePerWinner","type":"uint256","indexed":false}
	]},
	{"type":"event","name":"WinningsClaimed","anonymous":false,"inputs":[
		{"name":"user","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false}
	]}
]`
