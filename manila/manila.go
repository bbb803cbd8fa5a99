/*

Manila infers phylogenetic trees from aligned nucleotide sequences
using distance methods (neighbor joining and UPGMA) and compares trees
through Robinson-Foulds distances and split reports.

Compute a distance matrix:

	manila dist alignment.fst

Infer a midpoint-rooted neighbor joining tree:

	manila nj --midpoint --tree out.nwk alignment.fst

Attach bootstrap support values to a tree:

	manila boot -n 100 alignment.fst tree.nwk

Compare trees:

	manila compare a.nwk b.nwk

To see all the options run:

	manila --help

*/
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"github.com/KlausVigo/Manila/bio"
	"github.com/KlausVigo/Manila/checkpoint"
	"github.com/KlausVigo/Manila/dist"
	"github.com/KlausVigo/Manila/infer"
	"github.com/KlausVigo/Manila/split"
	"github.com/KlausVigo/Manila/tree"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("manila")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	app = kingpin.New("manila", "distance-based phylogenetic tree inference and comparison").Version(version)

	// technical
	nThreads = app.Flag("nt", "number of threads to use").Int()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")

	cmdDist  = app.Command("dist", "compute the pairwise distance matrix of an alignment")
	distOpts = addDistFlags(cmdDist)
	distAln  = cmdDist.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	distOutF = cmdDist.Flag("out", "write the matrix to a file").String()

	cmdNJ      = app.Command("nj", "infer an unrooted tree with neighbor joining")
	njOpts     = addDistFlags(cmdNJ)
	njAln      = cmdNJ.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	njMidpoint = cmdNJ.Flag("midpoint", "reroot the tree at the midpoint of its longest path").Bool()
	njTreeF    = cmdNJ.Flag("tree", "write tree to a file").String()

	cmdUPGMA   = app.Command("upgma", "infer a rooted ultrametric tree with UPGMA")
	upgmaOpts  = addDistFlags(cmdUPGMA)
	upgmaAln   = cmdUPGMA.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	upgmaTreeF = cmdUPGMA.Flag("tree", "write tree to a file").String()

	cmdBoot   = app.Command("boot", "attach bootstrap support values to a tree")
	bootOpts  = addDistFlags(cmdBoot)
	bootAln   = cmdBoot.Arg("alignment", "sequence alignment (FASTA)").Required().ExistingFile()
	bootTree  = cmdBoot.Arg("tree", "tree to annotate (newick)").Required().ExistingFile()
	bootN     = cmdBoot.Flag("n", "number of bootstrap replicates").Default("100").Int()
	bootSeed  = cmdBoot.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	bootTreeF = cmdBoot.Flag("tree-out", "write the annotated tree to a file").String()

	cmdCompare    = app.Command("compare", "pairwise Robinson-Foulds distances between trees")
	compareFiles  = cmdCompare.Arg("trees", "newick tree files, one or more trees each").Required().ExistingFiles()
	compareSplits = cmdCompare.Flag("splits", "report shared and differing splits (exactly two trees)").Bool()
	comparePrune  = cmdCompare.Flag("prune", "restrict all trees to their common taxa first").Bool()
)

// distFlags are the options shared by every command that computes
// distances.
type distFlags struct {
	model   *string
	exclude *string
	ml      *bool
	cacheF  *string
}

func addDistFlags(cmd *kingpin.CmdClause) *distFlags {
	return &distFlags{
		model: cmd.Flag("model", "substitution model (raw, jc69, k80 or f81)").
			Default("f81").Enum("raw", "jc69", "k80", "f81"),
		exclude: cmd.Flag("exclude", "gap exclusion policy (pairwise or global)").
			Default("pairwise").Enum("pairwise", "global"),
		ml:     cmd.Flag("ml", "refine F81 distances by likelihood maximization").Bool(),
		cacheF: cmd.Flag("cache", "bolt database file for distance matrix caching").String(),
	}
}

func (df *distFlags) options() (dist.Options, error) {
	model, err := dist.ModelFromString(*df.model)
	if err != nil {
		return dist.Options{}, err
	}
	policy, err := dist.GapPolicyFromString(*df.exclude)
	if err != nil {
		return dist.Options{}, err
	}
	return dist.Options{
		Model:    model,
		Policy:   policy,
		Threads:  *nThreads,
		MLRefine: *df.ml,
	}, nil
}

func readAlignment(fn string) (*bio.Alignment, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	seqs, err := bio.ParseFasta(f)
	if err != nil {
		return nil, err
	}
	aln, err := bio.NewAlignment(seqs)
	if err != nil {
		return nil, err
	}
	log.Infof("Read alignment of %d sequences, %d columns", aln.NTaxa(), aln.Length())
	return aln, nil
}

// computeMatrix computes (or, with -cache, recalls) the distance
// matrix of an alignment.
func computeMatrix(fn string, df *distFlags) (*dist.Matrix, error) {
	aln, err := readAlignment(fn)
	if err != nil {
		return nil, err
	}
	opt, err := df.options()
	if err != nil {
		return nil, err
	}
	log.Infof("Using %s model, %s gap exclusion", opt.Model, opt.Policy)

	var cp *checkpoint.IO
	var key []byte
	if *df.cacheF != "" {
		db, err := bolt.Open(*df.cacheF, 0666, nil)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		cp = checkpoint.NewIO(db)
		key = checkpoint.Key(aln.Digest(), opt)
		if dm, err := cp.Load(key); err != nil {
			log.Error("Error reading distance cache:", err)
		} else if dm != nil {
			return dm, nil
		}
	}

	dm, err := dist.Compute(aln, opt)
	if err != nil {
		return nil, err
	}
	if cp != nil {
		cp.Save(key, dm)
	}
	return dm, nil
}

func readTrees(files []string) (trees []*tree.Tree, names []string, err error) {
	for _, fn := range files {
		f, err := os.Open(fn)
		if err != nil {
			return nil, nil, err
		}
		ts, err := tree.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", fn, err)
		}
		for i, t := range ts {
			trees = append(trees, t)
			if len(ts) == 1 {
				names = append(names, fn)
			} else {
				names = append(names, fmt.Sprintf("%s.%d", fn, i+1))
			}
		}
	}
	return trees, names, nil
}

func writeOutput(text, fn string) error {
	if fn == "" {
		fmt.Print(text)
		return nil
	}
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(text)
	return err
}

func runDist() error {
	dm, err := computeMatrix(*distAln, distOpts)
	if err != nil {
		return err
	}
	return writeOutput(dm.String(), *distOutF)
}

func runNJ() error {
	dm, err := computeMatrix(*njAln, njOpts)
	if err != nil {
		return err
	}
	t, err := infer.NeighborJoin(dm)
	if err != nil {
		return err
	}
	if *njMidpoint {
		t, err = t.MidpointRoot()
		if err != nil {
			return err
		}
	}
	log.Debug(t.FullString())
	return writeOutput(t.Newick()+"\n", *njTreeF)
}

func runUPGMA() error {
	dm, err := computeMatrix(*upgmaAln, upgmaOpts)
	if err != nil {
		return err
	}
	t, err := infer.UPGMA(dm)
	if err != nil {
		return err
	}
	log.Debug(t.FullString())
	return writeOutput(t.Newick()+"\n", *upgmaTreeF)
}

func runBoot() error {
	aln, err := readAlignment(*bootAln)
	if err != nil {
		return err
	}
	f, err := os.Open(*bootTree)
	if err != nil {
		return err
	}
	t, err := tree.ParseNewick(f)
	f.Close()
	if err != nil {
		return err
	}

	opt, err := bootOpts.options()
	if err != nil {
		return err
	}
	if *bootSeed == -1 {
		*bootSeed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *bootSeed)

	reps, err := infer.BootstrapNJ(aln, opt, *bootN, *bootSeed)
	if err != nil {
		return err
	}
	if err := split.AnnotateSupport(t, reps); err != nil {
		return err
	}
	return writeOutput(t.Newick()+"\n", *bootTreeF)
}

func runCompare() error {
	trees, names, err := readTrees(*compareFiles)
	if err != nil {
		return err
	}
	if len(trees) < 2 {
		return fmt.Errorf("need at least two trees, got %d", len(trees))
	}

	if *comparePrune {
		common := trees[0].LeafSet()
		for _, t := range trees[1:] {
			ls := t.LeafSet()
			for name := range common {
				if !ls[name] {
					delete(common, name)
				}
			}
		}
		log.Infof("Restricting %d trees to %d common taxa", len(trees), len(common))
		for i, t := range trees {
			if trees[i], err = t.Restrict(common); err != nil {
				return fmt.Errorf("%s: %w", names[i], err)
			}
		}
	}

	if *compareSplits {
		if len(trees) != 2 {
			return fmt.Errorf("--splits needs exactly two trees, got %d", len(trees))
		}
		shared, err := split.SharedSplits(trees[0], trees[1])
		if err != nil {
			return err
		}
		onlyA, onlyB, err := split.DifferingSplits(trees[0], trees[1])
		if err != nil {
			return err
		}
		fmt.Printf("shared splits (%d):\n", len(shared))
		for _, sp := range shared {
			fmt.Printf("\t%s\n", sp)
		}
		fmt.Printf("only in %s (%d):\n", names[0], len(onlyA))
		for _, sp := range onlyA {
			fmt.Printf("\t%s\n", sp)
		}
		fmt.Printf("only in %s (%d):\n", names[1], len(onlyB))
		for _, sp := range onlyB {
			fmt.Printf("\t%s\n", sp)
		}
		return nil
	}

	dm, err := split.RFMatrix(trees, names, *nThreads)
	if err != nil {
		return err
	}
	fmt.Print(dm.String())
	return nil
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "manila")
	logging.SetLevel(level, "dist")
	logging.SetLevel(level, "infer")
	logging.SetLevel(level, "split")
	logging.SetLevel(level, "checkpoint")

	log.Info(version)
	log.Info("Command line:", os.Args)

	if *nThreads > 0 {
		runtime.GOMAXPROCS(*nThreads)
	}
	log.Infof("Using threads: %d.", runtime.GOMAXPROCS(0))

	switch cmd {
	case cmdDist.FullCommand():
		err = runDist()
	case cmdNJ.FullCommand():
		err = runNJ()
	case cmdUPGMA.FullCommand():
		err = runUPGMA()
	case cmdBoot.FullCommand():
		err = runBoot()
	case cmdCompare.FullCommand():
		err = runCompare()
	}
	if err != nil {
		log.Fatal(err)
	}
}
