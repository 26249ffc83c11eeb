// forge-cli is a command-line client for interacting with a forged daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingnet-forge/config"
	"github.com/Klingon-tech/klingnet-forge/internal/forge"
	"github.com/Klingon-tech/klingnet-forge/internal/keystore"
	"github.com/Klingon-tech/klingnet-forge/internal/rpcclient"
	"github.com/Klingon-tech/klingnet-forge/pkg/crypto"
	"github.com/Klingon-tech/klingnet-forge/pkg/types"
)

// keystoreDir returns the keystore path matching forged's layout:
// <datadir>/<network>/keystore
func keystoreDir(dataDir, network string) string {
	return filepath.Join(dataDir, network, "keystore")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Parse global flags that appear before the subcommand.
	rpcURL := "http://127.0.0.1:8645"
	dataDir := config.DefaultDataDir()
	network := "mainnet"

	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	// Set address HRP based on network.
	if network == "testnet" {
		types.SetAddressHRP(types.TestnetHRP)
	} else {
		types.SetAddressHRP(types.MainnetHRP)
	}

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir := keystoreDir(dataDir, network)
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "key":
		cmdKey(cmdArgs, ksDir)
	case "forge":
		cmdForge(client, cmdArgs, ksDir)
	case "asset":
		cmdAsset(client, cmdArgs, ksDir)
	case "balance":
		cmdBalance(client, cmdArgs)
	case "holding":
		cmdHolding(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: forge-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:8645)
  --datadir <path>    Data directory (default: ~/.klingnet-forge)
  --network <net>     mainnet (default) or testnet

Commands:
  key create --name <n>           Create a new signing key
  key import --name <n> --mnemonic "..."
                                  Import a key from a mnemonic
  key list                        List stored keys
  key address --name <n>          Show a key's address
  key delete --name <n>           Delete a stored key

  forge init --key <n>            Initialize the forge authority
  forge authority                 Show the authority record
  forge create-recipe --key <n> --class <id> --ingredients <id>:<amt>,...
                                  Publish a recipe for a class asset
  forge recipe <class>            Show the recipe for a class
  forge register --key <n> --class <id> --member <id>
                                  Register a member asset
  forge members <class>           List registered members
  forge craft --key <n> --class <id> --output <id>
                                  Redeem a member asset against the recipe

  asset create --key <n> --name <name> --symbol <SYM> [--decimals <d>] [--max-supply <n>]
                                  Create a new asset
  asset mint --key <n> --asset <id> --to <addr> --amount <n>
                                  Issue new units
  asset send --key <n> --asset <id> --to <addr> --amount <n>
                                  Transfer units
  asset set-collection --key <n> --asset <id> --collection <id>
                                  Link an asset to a collection
  asset verify-collection --key <n> --asset <id>
                                  Verify a collection link
  asset verify-creator --key <n> --asset <id>
                                  Verify your creator entry
  asset info <id>                 Show asset metadata
  asset list                      List all assets

  balance <address> [--asset <id>]
                                  Show holdings of an address
  holding <address>               Show the holding record at an address
`)
}

// ── key ─────────────────────────────────────────────────────────────────

func cmdKey(args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli key <create|import|list|address|delete> [flags]")
	}

	switch args[0] {
	case "create":
		cmdKeyCreate(args[1:], ksDir)
	case "import":
		cmdKeyImport(args[1:], ksDir)
	case "list":
		cmdKeyList(ksDir)
	case "address":
		cmdKeyAddress(args[1:], ksDir)
	case "delete":
		cmdKeyDelete(args[1:], ksDir)
	default:
		fatal("Unknown key command: %s", args[0])
	}
}

func cmdKeyCreate(args []string, ksDir string) {
	fs := flag.NewFlagSet("key create", flag.ExitOnError)
	name := fs.String("name", "", "Key name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: forge-cli key create --name <name>")
	}

	mnemonic, err := keystore.GenerateMnemonic()
	if err != nil {
		fatal("generate mnemonic: %v", err)
	}

	fmt.Println("Mnemonic (write this down!):")
	fmt.Printf("  %s\n\n", mnemonic)

	password := promptNewPassword()

	key, err := keystore.KeyFromMnemonic(mnemonic, "")
	if err != nil {
		fatal("derive key: %v", err)
	}
	defer key.Zero()

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, key, password, keystore.DefaultParams()); err != nil {
		fatal("create key: %v", err)
	}

	fmt.Printf("\nKey created: %s\n", *name)
	fmt.Printf("Address: %s\n", crypto.AddressFromPubKey(key.PublicKey()))
}

func cmdKeyImport(args []string, ksDir string) {
	fs := flag.NewFlagSet("key import", flag.ExitOnError)
	name := fs.String("name", "", "Key name")
	mnemonic := fs.String("mnemonic", "", "BIP-39 mnemonic (24 words)")
	fs.Parse(args)

	if *name == "" || *mnemonic == "" {
		fatal("Usage: forge-cli key import --name <name> --mnemonic \"word1 word2 ...\"")
	}
	if !keystore.ValidateMnemonic(*mnemonic) {
		fatal("invalid mnemonic")
	}

	password := promptNewPassword()

	key, err := keystore.KeyFromMnemonic(*mnemonic, "")
	if err != nil {
		fatal("derive key: %v", err)
	}
	defer key.Zero()

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Create(*name, key, password, keystore.DefaultParams()); err != nil {
		fatal("import key: %v", err)
	}

	fmt.Printf("Key imported: %s\n", *name)
	fmt.Printf("Address: %s\n", crypto.AddressFromPubKey(key.PublicKey()))
}

func cmdKeyList(ksDir string) {
	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list keys: %v", err)
	}
	if len(names) == 0 {
		fmt.Println("No keys.")
		return
	}
	for _, name := range names {
		addr, err := ks.Address(name)
		if err != nil {
			fmt.Printf("%-20s (unreadable: %v)\n", name, err)
			continue
		}
		fmt.Printf("%-20s %s\n", name, addr)
	}
}

func cmdKeyAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("key address", flag.ExitOnError)
	name := fs.String("name", "", "Key name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: forge-cli key address --name <name>")
	}

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	addr, err := ks.Address(*name)
	if err != nil {
		fatal("key address: %v", err)
	}
	fmt.Println(addr)
}

func cmdKeyDelete(args []string, ksDir string) {
	fs := flag.NewFlagSet("key delete", flag.ExitOnError)
	name := fs.String("name", "", "Key name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: forge-cli key delete --name <name>")
	}

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	if err := ks.Delete(*name); err != nil {
		fatal("delete key: %v", err)
	}
	fmt.Printf("Key deleted: %s\n", *name)
}

// ── forge ───────────────────────────────────────────────────────────────

func cmdForge(client *rpcclient.Client, args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli forge <init|authority|create-recipe|recipe|register|members|craft> [flags]")
	}

	switch args[0] {
	case "init":
		cmdForgeInit(client, args[1:], ksDir)
	case "authority":
		cmdForgeAuthority(client)
	case "create-recipe":
		cmdForgeCreateRecipe(client, args[1:], ksDir)
	case "recipe":
		cmdForgeRecipe(client, args[1:])
	case "register":
		cmdForgeRegister(client, args[1:], ksDir)
	case "members":
		cmdForgeMembers(client, args[1:])
	case "craft":
		cmdForgeCraft(client, args[1:], ksDir)
	default:
		fatal("Unknown forge command: %s", args[0])
	}
}

func cmdForgeInit(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("forge init", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	fs.Parse(args)

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	result, err := client.Initialize(key)
	if err != nil {
		fatal("forge_initialize: %v", err)
	}
	fmt.Printf("Forge initialized.\n")
	fmt.Printf("  Authority: %s\n", result.Address)
	fmt.Printf("  Admin:     %s\n", result.Admin)
}

func cmdForgeAuthority(client *rpcclient.Client) {
	auth, err := client.GetAuthority()
	if err != nil {
		fatal("forge_getAuthority: %v", err)
	}
	fmt.Printf("Authority: %s\n", auth.Address)
	fmt.Printf("Admin:     %s\n", auth.Admin)
	fmt.Printf("Nonce:     %d\n", auth.Nonce)
}

func cmdForgeCreateRecipe(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("forge create-recipe", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	classStr := fs.String("class", "", "Class asset ID (hex)")
	ingredientsStr := fs.String("ingredients", "", "Comma-separated <asset>:<amount> pairs")
	fs.Parse(args)

	if *classStr == "" || *ingredientsStr == "" {
		fatal("Usage: forge-cli forge create-recipe --key <n> --class <id> --ingredients <id>:<amt>,...")
	}
	class := parseAssetID(*classStr)
	ingredients := parseIngredients(*ingredientsStr)

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	recipe, err := client.CreateRecipe(key, class, ingredients)
	if err != nil {
		fatal("forge_createRecipe: %v", err)
	}
	fmt.Printf("Recipe created at %s\n", recipe.Address)
	printRecipe(recipe)
}

func cmdForgeRecipe(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli forge recipe <class>")
	}
	recipe, err := client.GetRecipe(parseAssetID(args[0]))
	if err != nil {
		fatal("forge_getRecipe: %v", err)
	}
	printRecipe(recipe)
}

func printRecipe(recipe *forge.Recipe) {
	fmt.Printf("Class:   %s\n", recipe.Class)
	fmt.Printf("Creator: %s\n", recipe.Creator)
	fmt.Println("Ingredients:")
	for i, ing := range recipe.Ingredients {
		fmt.Printf("  %d. %s x%d\n", i+1, ing.Asset, ing.Amount)
	}
}

func cmdForgeRegister(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("forge register", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	classStr := fs.String("class", "", "Class asset ID (hex)")
	memberStr := fs.String("member", "", "Member asset ID (hex)")
	fs.Parse(args)

	if *classStr == "" || *memberStr == "" {
		fatal("Usage: forge-cli forge register --key <n> --class <id> --member <id>")
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	if err := client.RegisterMember(key, parseAssetID(*classStr), parseAssetID(*memberStr)); err != nil {
		fatal("forge_registerMember: %v", err)
	}
	fmt.Println("Member registered.")
}

func cmdForgeMembers(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli forge members <class>")
	}
	members, err := client.ListMembers(parseAssetID(args[0]))
	if err != nil {
		fatal("forge_listMembers: %v", err)
	}
	if len(members) == 0 {
		fmt.Println("No registered members.")
		return
	}
	for _, m := range members {
		fmt.Println(m)
	}
}

func cmdForgeCraft(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("forge craft", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	classStr := fs.String("class", "", "Class asset ID (hex)")
	outputStr := fs.String("output", "", "Output member asset ID (hex)")
	fs.Parse(args)

	if *classStr == "" || *outputStr == "" {
		fatal("Usage: forge-cli forge craft --key <n> --class <id> --output <id>")
	}
	class := parseAssetID(*classStr)
	output := parseAssetID(*outputStr)

	key := loadKey(ksDir, *keyName)
	defer key.Zero()
	caller := crypto.AddressFromPubKey(key.PublicKey())

	// Slots follow the recipe's ingredient order.
	auth, err := client.GetAuthority()
	if err != nil {
		fatal("forge_getAuthority: %v", err)
	}
	recipe, err := client.GetRecipe(class)
	if err != nil {
		fatal("forge_getRecipe: %v", err)
	}
	assets := make([]types.AssetID, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		assets[i] = ing.Asset
	}
	slots, err := rpcclient.CraftSlots(caller, auth.Address, assets...)
	if err != nil {
		fatal("build slots: %v", err)
	}

	receipt, err := client.Craft(key, class, output, slots)
	if err != nil {
		fatal("forge_craft: %v", err)
	}

	fmt.Printf("Crafted %s\n", receipt.Output)
	fmt.Printf("  Holding: %s\n", receipt.OutputHolding)
	fmt.Println("  Consumed:")
	for _, ing := range receipt.Consumed {
		fmt.Printf("    %s x%d\n", ing.Asset, ing.Amount)
	}
}

// ── asset ───────────────────────────────────────────────────────────────

func cmdAsset(client *rpcclient.Client, args []string, ksDir string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli asset <create|mint|send|set-collection|verify-collection|verify-creator|info|list> [flags]")
	}

	switch args[0] {
	case "create":
		cmdAssetCreate(client, args[1:], ksDir)
	case "mint":
		cmdAssetMint(client, args[1:], ksDir)
	case "send":
		cmdAssetSend(client, args[1:], ksDir)
	case "set-collection":
		cmdAssetSetCollection(client, args[1:], ksDir)
	case "verify-collection":
		cmdAssetVerify(client, args[1:], ksDir, true)
	case "verify-creator":
		cmdAssetVerify(client, args[1:], ksDir, false)
	case "info":
		cmdAssetInfo(client, args[1:])
	case "list":
		cmdAssetList(client)
	default:
		fatal("Unknown asset command: %s", args[0])
	}
}

func cmdAssetCreate(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("asset create", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	name := fs.String("name", "", "Asset name")
	symbol := fs.String("symbol", "", "Asset symbol")
	decimals := fs.Int("decimals", 0, "Decimal places")
	maxSupplyStr := fs.String("max-supply", "", "Supply cap (0 = unique asset)")
	fs.Parse(args)

	if *name == "" || *symbol == "" {
		fatal("Usage: forge-cli asset create --key <n> --name <name> --symbol <SYM> [--decimals <d>] [--max-supply <n>]")
	}

	var maxSupply *uint64
	if *maxSupplyStr != "" {
		v, err := strconv.ParseUint(*maxSupplyStr, 10, 64)
		if err != nil {
			fatal("invalid max-supply: %v", err)
		}
		maxSupply = &v
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	asset, err := client.CreateAsset(key, *name, *symbol, uint8(*decimals), maxSupply)
	if err != nil {
		fatal("asset_create: %v", err)
	}
	fmt.Printf("Asset created: %s\n", asset)
}

func cmdAssetMint(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("asset mint", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	assetStr := fs.String("asset", "", "Asset ID (hex)")
	toStr := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Units to issue")
	fs.Parse(args)

	if *assetStr == "" || *toStr == "" || *amount == 0 {
		fatal("Usage: forge-cli asset mint --key <n> --asset <id> --to <addr> --amount <n>")
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	result, err := client.Mint(key, parseAssetID(*assetStr), parseAddress(*toStr), *amount)
	if err != nil {
		fatal("asset_mint: %v", err)
	}
	fmt.Printf("Minted. Holding %s now has %d units.\n", result.Holding, result.Amount)
}

func cmdAssetSend(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("asset send", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	assetStr := fs.String("asset", "", "Asset ID (hex)")
	toStr := fs.String("to", "", "Recipient address")
	amount := fs.Uint64("amount", 0, "Units to transfer")
	fs.Parse(args)

	if *assetStr == "" || *toStr == "" || *amount == 0 {
		fatal("Usage: forge-cli asset send --key <n> --asset <id> --to <addr> --amount <n>")
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	result, err := client.Transfer(key, parseAssetID(*assetStr), parseAddress(*toStr), *amount)
	if err != nil {
		fatal("asset_transfer: %v", err)
	}
	fmt.Printf("Sent. Holding %s now has %d units.\n", result.Holding, result.Amount)
}

func cmdAssetSetCollection(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("asset set-collection", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	assetStr := fs.String("asset", "", "Asset ID (hex)")
	collectionStr := fs.String("collection", "", "Collection asset ID (hex)")
	fs.Parse(args)

	if *assetStr == "" || *collectionStr == "" {
		fatal("Usage: forge-cli asset set-collection --key <n> --asset <id> --collection <id>")
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	if err := client.SetCollection(key, parseAssetID(*assetStr), parseAssetID(*collectionStr)); err != nil {
		fatal("asset_setCollection: %v", err)
	}
	fmt.Println("Collection link set (unverified).")
}

func cmdAssetVerify(client *rpcclient.Client, args []string, ksDir string, collection bool) {
	fs := flag.NewFlagSet("asset verify", flag.ExitOnError)
	keyName := fs.String("key", "", "Signing key name")
	assetStr := fs.String("asset", "", "Asset ID (hex)")
	fs.Parse(args)

	if *assetStr == "" {
		fatal("Usage: forge-cli asset verify-collection|verify-creator --key <n> --asset <id>")
	}

	key := loadKey(ksDir, *keyName)
	defer key.Zero()

	asset := parseAssetID(*assetStr)
	if collection {
		if err := client.VerifyCollection(key, asset); err != nil {
			fatal("asset_verifyCollection: %v", err)
		}
		fmt.Println("Collection link verified.")
		return
	}
	if err := client.VerifyCreator(key, asset); err != nil {
		fatal("asset_verifyCreator: %v", err)
	}
	fmt.Println("Creator entry verified.")
}

func cmdAssetInfo(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli asset info <id>")
	}
	meta, err := client.GetMetadata(parseAssetID(args[0]))
	if err != nil {
		fatal("asset_getMetadata: %v", err)
	}

	fmt.Printf("Asset:  %s\n", meta.Asset)
	fmt.Printf("Name:   %s\n", meta.Name)
	fmt.Printf("Symbol: %s\n", meta.Symbol)
	fmt.Println("Creators:")
	for _, c := range meta.Creators {
		mark := " "
		if c.Verified {
			mark = "*"
		}
		fmt.Printf("  %s %s\n", mark, c.Address)
	}
	if meta.Collection != nil {
		state := "unverified"
		if meta.Collection.Verified {
			state = "verified"
		}
		fmt.Printf("Collection: %s (%s)\n", meta.Collection.Asset, state)
	}
}

func cmdAssetList(client *rpcclient.Client) {
	assets, err := client.ListAssets()
	if err != nil {
		fatal("asset_list: %v", err)
	}
	if len(assets) == 0 {
		fmt.Println("No assets.")
		return
	}
	for _, a := range assets {
		fmt.Printf("%-8s %-20s supply=%-10d %s\n", a.Symbol, a.Name, a.Supply, a.Asset)
	}
}

// ── balance / holding ───────────────────────────────────────────────────

func cmdBalance(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli balance <address> [--asset <id>]")
	}
	owner := parseAddress(args[0])

	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	assetStr := fs.String("asset", "", "Asset ID (hex)")
	fs.Parse(args[1:])

	var asset types.AssetID
	if *assetStr != "" {
		asset = parseAssetID(*assetStr)
	}

	holdings, err := client.GetBalance(owner, asset)
	if err != nil {
		fatal("asset_getBalance: %v", err)
	}
	if len(holdings) == 0 {
		fmt.Println("No holdings.")
		return
	}
	for _, h := range holdings {
		fmt.Printf("%s  %d  (holding %s)\n", h.Asset, h.Amount, h.Address)
	}
}

func cmdHolding(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: forge-cli holding <address>")
	}
	h, err := client.GetHolding(parseAddress(args[0]))
	if err != nil {
		fatal("asset_getHolding: %v", err)
	}
	fmt.Printf("Address: %s\n", h.Address)
	fmt.Printf("Owner:   %s\n", h.Owner)
	fmt.Printf("Asset:   %s\n", h.Asset)
	fmt.Printf("Amount:  %d\n", h.Amount)
}

// ── Parsing helpers ─────────────────────────────────────────────────────

func parseAssetID(s string) types.AssetID {
	id, err := types.HexToAssetID(s)
	if err != nil {
		fatal("invalid asset ID %q: %v", s, err)
	}
	return id
}

func parseAddress(s string) types.Address {
	addr, err := types.ParseAddress(s)
	if err != nil {
		fatal("invalid address %q: %v", s, err)
	}
	return addr
}

// parseIngredients parses "asset:amount,asset:amount" pairs.
func parseIngredients(s string) []forge.Ingredient {
	parts := strings.Split(s, ",")
	ingredients := make([]forge.Ingredient, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.SplitN(p, ":", 2)
		if len(fields) != 2 {
			fatal("invalid ingredient %q (want <asset>:<amount>)", p)
		}
		amount, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			fatal("invalid ingredient amount %q: %v", fields[1], err)
		}
		ingredients = append(ingredients, forge.Ingredient{
			Asset:  parseAssetID(fields[0]),
			Amount: amount,
		})
	}
	if len(ingredients) == 0 {
		fatal("no ingredients given")
	}
	return ingredients
}

// ── Key helper ──────────────────────────────────────────────────────────

// loadKey opens the named key, prompting for its passphrase.
func loadKey(ksDir, name string) *crypto.PrivateKey {
	if name == "" {
		fatal("--key is required")
	}
	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	key, err := ks.Load(name, password)
	if err != nil {
		fatal("load key %q: %v", name, err)
	}
	return key
}

func promptNewPassword() []byte {
	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}
	return password
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
