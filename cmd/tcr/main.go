package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/thecardroom/tcr/app"
	"github.com/thecardroom/tcr/common/logger"
	conf "github.com/thecardroom/tcr/config"
	"github.com/thecardroom/tcr/internal/dashboard"
	prt "github.com/thecardroom/tcr/protocol"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"

	configFile string
	runnerURL  string
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "tcr",
		Short: "The Card Room 지갑 / 정책 / 프로젝트 대시보드",
		Long: `tcr - 지갑, 민팅 정책, NFT 프로젝트 관리 TUI

설정이 없으면 첫 화면에서 Blockfrost project id, 프로젝트 데이터 파일,
네트워크를 입력받습니다.

사용 예시:
  tcr                                  # 대시보드
  tcr setup                            # 터미널에서 설정
  tcr --runner http://host:8484        # 원격 민트 러너 상태`,
		Run: func(cmd *cobra.Command, args []string) {
			runDashboard()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "설정 파일 경로")
	rootCmd.Flags().StringVar(&runnerURL, "runner", "", "민트 러너 REST 주소 (기본: localhost:RestPort)")

	rootCmd.AddCommand(setupCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "버전 정보 출력",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tcr v%s (built: %s)\n", Version, BuildTime)
		},
	}
}

func setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "설정 파일 작성",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := conf.NewConfig(configFile)
			if err != nil {
				return err
			}
			id, err := conf.PromptSecret("Blockfrost project id: ")
			if err != nil {
				return err
			}
			in := bufio.NewReader(os.Stdin)
			dataFile := prompt(in, "Project data file", cfg.Common.DataFile)
			network := prompt(in, "Network (mainnet, preprod, preview)", cfg.Common.Network)

			net, err := prt.ParseNetwork(network)
			if err != nil {
				return err
			}
			if net == prt.NetworkNone || id == "" || dataFile == "" {
				return fmt.Errorf("project id, data file and network are required")
			}
			cfg.Blockfrost.ProjectID = id
			cfg.Common.DataFile = dataFile
			cfg.Common.Network = string(net)
			if err := cfg.Save(); err != nil {
				return err
			}
			if _, err := app.OpenStore(cfg, net); err != nil {
				return err
			}
			fmt.Println("saved", cfg.Path())
			return nil
		},
	}
}

func prompt(in *bufio.Reader, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := in.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return def
	}
	return line
}

func runDashboard() {
	cfg, err := conf.NewConfig(configFile)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if _, err := logger.InitLogger(cfg, "tcr", false); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	config := dashboard.Config{
		Settings:  cfg,
		Connect:   app.DashboardSession,
		LogDir:    cfg.LogInfo.Path,
		LogApps:   []string{"nftmint", "tcr", "status"},
		RunnerURL: runnerURL,
		Version:   Version,
	}

	if err := dashboard.Run(config); err != nil {
		fmt.Printf("Dashboard error: %v\n", err)
		os.Exit(1)
	}
}
